package portal

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for normalization failures. Handlers match these with
// errors.Is to pick the user-facing message.
var (
	// ErrNotFound: the upstream payload carries no "id" field.
	ErrNotFound = errors.New("entity not found")
	// ErrMalformed: the upstream payload carries an "id" but no "name".
	// Only enforced for direct entity fetches; search-result rows tolerate
	// a missing name and keep it empty.
	ErrMalformed = errors.New("malformed entity")
	// ErrUnsupportedFormat: a resource format outside CSV/JSON was given to
	// the preview pipeline.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// HTTPError is a non-2xx transport-level response from the portal.
type HTTPError struct {
	Status     int
	StatusText string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("portal HTTP error: %d %s", e.Status, e.StatusText)
}

// APIError is a well-formed envelope whose success flag is false.
type APIError struct {
	Action string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("portal API error on %s: %s", e.Action, e.Body)
}
