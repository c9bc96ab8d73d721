package state

// Error is the application-layer error surfaced to the HTTP adapter, which
// maps Status onto the response code and Code/Details into the envelope.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func notFound(code, message string, details map[string]any) *Error {
	return &Error{Status: 404, Code: code, Message: message, Details: details}
}

func validation(message string, details map[string]any) *Error {
	return &Error{Status: 422, Code: "VALIDATION_ERROR", Message: message, Details: details}
}
