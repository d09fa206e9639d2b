package catalog

import "fmt"

// ErrBadStatus indicates the catalog service answered with a non-200 status.
type ErrBadStatus struct {
	URL        string
	StatusCode int
}

func (e *ErrBadStatus) Error() string {
	return fmt.Sprintf("catalog request failed: HTTP %d for %s", e.StatusCode, e.URL)
}

// ErrInvalidPayload indicates the catalog service answered 200 but the body
// did not conform to the expected response schema.
type ErrInvalidPayload struct {
	Endpoint string
	Err      error
}

func (e *ErrInvalidPayload) Error() string {
	return fmt.Sprintf("invalid catalog payload from %s: %v", e.Endpoint, e.Err)
}

func (e *ErrInvalidPayload) Unwrap() error { return e.Err }
