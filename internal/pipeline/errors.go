package pipeline

import (
	"errors"
	"fmt"
)

const (
	MessageMissingFields = "Please provide the information to get started."
	MessageMalformedURL  = "Please enter a valid URL (YouTube or website)."
	exceptionPrefix      = "Exception: "
)

type Kind int

const (
	KindMissingFields Kind = iota + 1
	KindMalformedURL
	KindExtraction
	KindSummarization
)

func (k Kind) String() string {
	switch k {
	case KindMissingFields:
		return "missing_fields"
	case KindMalformedURL:
		return "malformed_url"
	case KindExtraction:
		return "extraction_error"
	case KindSummarization:
		return "summarization_error"
	default:
		return "unknown"
	}
}

// Error is the only error type Run returns.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}

	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns 0 for errors that did not come from Run.
func KindOf(err error) Kind {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Kind
	}

	return 0
}

// Message renders the text shown to the user for a failed invocation.
// Extraction and summarization failures share one format on purpose.
func Message(err error) string {
	var pErr *Error
	if !errors.As(err, &pErr) {
		return exceptionPrefix + err.Error()
	}

	switch pErr.Kind {
	case KindMissingFields:
		return MessageMissingFields
	case KindMalformedURL:
		return MessageMalformedURL
	default:
		if pErr.Err == nil {
			return exceptionPrefix + pErr.Kind.String()
		}
		return exceptionPrefix + pErr.Err.Error()
	}
}
