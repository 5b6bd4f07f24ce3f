package providers

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrTransport covers network failures, timeouts and non-2xx responses.
	ErrTransport = errors.New("provider transport error")
	// ErrShape means the provider answered but not with usable content.
	ErrShape = errors.New("provider response shape error")
	// ErrMissingKey means no API key is configured for the provider alias.
	ErrMissingKey = errors.New("provider key missing")
)

type ErrorType string

const (
	ErrorQuota     ErrorType = "quota"
	ErrorRate      ErrorType = "rate"
	ErrorTransient ErrorType = "transient"
	ErrorPermanent ErrorType = "permanent"
	ErrorContext   ErrorType = "context"
	ErrorShape     ErrorType = "shape"
)

func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorTransient
	}
	if errors.Is(err, ErrShape) {
		return ErrorShape
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"), strings.Contains(e, "insufficient_quota"):
		return ErrorQuota
	case strings.Contains(e, "rate limit"), strings.Contains(e, "429"), strings.Contains(e, " rate"):
		return ErrorRate
	case strings.Contains(e, "context length"), strings.Contains(e, "too long"):
		return ErrorContext
	case strings.Contains(e, "timeout"), strings.Contains(e, "temporarily"), strings.Contains(e, "unavailable"),
		strings.Contains(e, " 502"), strings.Contains(e, " 503"), strings.Contains(e, " 504"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}
