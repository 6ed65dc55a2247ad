package apperr

import (
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyVoted       = errors.New("voter already voted in this poll")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("validation failed")
	ErrPollNotVotable     = errors.New("poll is not open for voting")
	ErrConflict           = errors.New("conflict")
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// ValidationError lists the offending fields of a rejected input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validation collects field errors; Err returns nil when nothing was added.
type Validation struct {
	fields map[string]string
}

func (v *Validation) Add(field, msg string) {
	if v.fields == nil {
		v.fields = make(map[string]string)
	}
	if _, exists := v.fields[field]; !exists {
		v.fields[field] = msg
	}
}

func (v *Validation) Require(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "is required")
	}
}

func (v *Validation) Err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

// FieldErrors returns the per-field messages carried by err, if any.
func FieldErrors(err error) map[string]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

type backendError struct {
	cause error
}

func (e *backendError) Error() string { return "backend unavailable: " + e.cause.Error() }
func (e *backendError) Unwrap() error { return e.cause }
func (e *backendError) Is(target error) bool {
	return target == ErrBackendUnavailable
}

// Unavailable marks err as a storage/service failure, keeping the original
// error reachable through errors.Unwrap.
func Unavailable(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &backendError{cause: errors.Wrap(err, msg)}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// HTTPStatus maps err onto a response code; unknown errors are 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyVoted), errors.Is(err, ErrPollNotVotable), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
