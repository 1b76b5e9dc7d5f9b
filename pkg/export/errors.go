package export

import (
	"fmt"
	"net/http"
)

// Kind classifies pipeline failures for HTTP mapping. Every remote call is
// attempted exactly once per request; no kind is ever retried.
type Kind int

const (
	// KindValidation: malformed request input (400).
	KindValidation Kind = iota
	// KindNotFound: no matching export, document, or version (404).
	KindNotFound
	// KindConfiguration: the remote model is missing a required input
	// parameter — a backend mismatch, not user error (500).
	KindConfiguration
	// KindUpstream: session creation or computation call failed (500).
	KindUpstream
	// KindDownload: the secondary artifact URL fetch failed (502).
	KindDownload
	// KindContent: the computation result held no extractable payload (500).
	KindContent
)

// Error is a classified pipeline error. Title becomes the "error" field of
// the JSON error body; Message the "message" field.
type Error struct {
	Kind    Kind
	Title   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error kind to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindDownload:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func validationErr(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Title: "Validation error", Message: fmt.Sprintf(format, args...)}
}

func notFoundErr(title, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Title: title, Message: fmt.Sprintf(format, args...)}
}

func configurationErr(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Title: "Configuration error", Message: fmt.Sprintf(format, args...)}
}

func upstreamErr(err error, format string, args ...any) *Error {
	return &Error{Kind: KindUpstream, Title: "Upstream error", Message: fmt.Sprintf(format, args...), Err: err}
}

func downloadErr(format string, args ...any) *Error {
	return &Error{Kind: KindDownload, Title: "Download failed", Message: fmt.Sprintf(format, args...)}
}

func contentErr(format string, args ...any) *Error {
	return &Error{Kind: KindContent, Title: "No export content", Message: fmt.Sprintf(format, args...)}
}
