// Package contracttest holds behavioral contract suites shared by every
// adapter implementation of a port. Adapter packages call these from their
// own _test files so each backend proves the same semantics.
package contracttest

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/umbral-esperanza/choir-console-api/internal/ports/out/blobstore"
	idempotencyport "github.com/umbral-esperanza/choir-console-api/internal/ports/out/idempotency"
)

// RunBlobStoreContract exercises the blobstore.Store contract against a fresh
// store produced by newStore.
func RunBlobStoreContract(t *testing.T, newStore func(t *testing.T) blobstore.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("load absent key returns ErrNotFound", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Load(ctx, "umbral_v1_members"); !errors.Is(err, blobstore.ErrNotFound) {
			t.Fatalf("err=%v", err)
		}
	})

	t.Run("save then load round-trips bytes", func(t *testing.T) {
		s := newStore(t)
		want := []byte(`[{"id":"m1"}]`)
		if err := s.Save(ctx, "umbral_v1_members", want); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := s.Load(ctx, "umbral_v1_members")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("got %q want %q", got, want)
		}
	})

	t.Run("save replaces the full value", func(t *testing.T) {
		s := newStore(t)
		if err := s.Save(ctx, "k", []byte("first value, longer")); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := s.Save(ctx, "k", []byte("second")); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := s.Load(ctx, "k")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if string(got) != "second" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("keys are independent", func(t *testing.T) {
		s := newStore(t)
		if err := s.Save(ctx, "umbral_v1_events", []byte("a")); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := s.Save(ctx, "umbral_v1_users", []byte("b")); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := s.Load(ctx, "umbral_v1_events")
		if err != nil || string(got) != "a" {
			t.Fatalf("got %q err=%v", got, err)
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := newStore(t)
		if err := s.Save(ctx, "k", []byte("v")); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := s.Delete(ctx, "k"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if err := s.Delete(ctx, "k"); err != nil {
			t.Fatalf("second Delete: %v", err)
		}
		if _, err := s.Load(ctx, "k"); !errors.Is(err, blobstore.ErrNotFound) {
			t.Fatalf("err=%v", err)
		}
	})
}

// RunIdempotencyStore exercises the idempotency.Store contract.
func RunIdempotencyStore(t *testing.T, newStore func(t *testing.T) idempotencyport.Store) {
	t.Helper()
	ctx := context.Background()

	store := newStore(t)

	fp := idempotencyport.Fingerprint{
		Key:      "k-1",
		Identity: "director:c1",
		Method:   "POST",
		Route:    "/reports",
		BodyHash: "abc123",
	}
	rec := idempotencyport.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"ok":true}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != `{"ok":true}` || got.ContentType != "application/json" || got.StatusCode != 201 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Different identity misses.
	other := fp
	other.Identity = "admin"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("expected miss for different identity, ok=%v err=%v", ok, err)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte(`{"ok":false}`)
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != `{"ok":false}` {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}
}
