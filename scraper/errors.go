package scraper

import "errors"

// Error type labels used in Result.ErrorsByType and metrics.
const (
	LabelTimeout     = "timeout"
	LabelConnection  = "connection"
	LabelForbidden   = "forbidden"
	LabelNotFound    = "not_found"
	LabelRateLimited = "rate_limited"
	LabelOther       = "other"
	LabelUnknown     = "unknown"
)

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct{ Err error }

func (e ErrTimeout) Error() string { return LabelTimeout + ": " + e.Err.Error() }
func (e ErrTimeout) Unwrap() error { return e.Err }

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct{ Err error }

func (e ErrConnection) Error() string { return LabelConnection + ": " + e.Err.Error() }
func (e ErrConnection) Unwrap() error { return e.Err }

// ErrForbidden indicates an HTTP 403 from the shop.
type ErrForbidden struct{ Err error }

func (e ErrForbidden) Error() string { return LabelForbidden + ": " + e.Err.Error() }
func (e ErrForbidden) Unwrap() error { return e.Err }

// ErrNotFound indicates an HTTP 404 from the shop.
type ErrNotFound struct{ Err error }

func (e ErrNotFound) Error() string { return LabelNotFound + ": " + e.Err.Error() }
func (e ErrNotFound) Unwrap() error { return e.Err }

// ErrRateLimited indicates the shop rate-limited the request.
type ErrRateLimited struct{ Err error }

func (e ErrRateLimited) Error() string { return LabelRateLimited + ": " + e.Err.Error() }
func (e ErrRateLimited) Unwrap() error { return e.Err }

func errorTypeLabel(err error) string {
	if err == nil {
		return LabelUnknown
	}
	switch {
	case errors.As(err, new(ErrTimeout)):
		return LabelTimeout
	case errors.As(err, new(ErrConnection)):
		return LabelConnection
	case errors.As(err, new(ErrForbidden)):
		return LabelForbidden
	case errors.As(err, new(ErrNotFound)):
		return LabelNotFound
	case errors.As(err, new(ErrRateLimited)):
		return LabelRateLimited
	}
	return LabelOther
}
