package blobstore

import "errors"

var (
	// ErrNotFound indicates no value is stored under the requested key.
	ErrNotFound = errors.New("blob not found")

	// ErrCapacityExceeded indicates the durable store is full. The write was
	// dropped; in-memory state remains authoritative.
	ErrCapacityExceeded = errors.New("storage capacity exceeded")
)
