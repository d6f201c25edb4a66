package windfarmer

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrTimedOut is returned when a job outlives PollPolicy.MaxDuration.
	ErrTimedOut = errors.New("calculation timed out")
	// ErrCancelled is returned when the caller's context ends while polling.
	ErrCancelled = errors.New("calculation polling cancelled")
)

// FieldError is one entry of the "errors" object of a problem-details response.
type FieldError struct {
	Field    string   `json:"field"`
	Messages []string `json:"messages"`
}

// SubmissionError means the API rejected a request (any non-accepted status).
type SubmissionError struct {
	Endpoint   string
	StatusCode int
	Status     string
	Detail     string
	Errors     []FieldError
}

func (e *SubmissionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s rejected with status %d", e.Endpoint, e.StatusCode)
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	for _, fe := range e.Errors {
		fmt.Fprintf(&b, "; %s: %s", fe.Field, strings.Join(fe.Messages, ", "))
	}
	return b.String()
}

// TransportError wraps a network or connection failure. The client never retries these;
// see RetryTransport.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// CalculationFailedError is a job that reached the FAILED state.
type CalculationFailedError struct {
	JobID   string
	Message string
}

func (e *CalculationFailedError) Error() string {
	return fmt.Sprintf("calculation %s failed: %s", e.JobID, e.Message)
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

type problemDetails struct {
	Title  string          `json:"title"`
	Detail string          `json:"detail"`
	Errors json.RawMessage `json:"errors"`
}

// parseProblem extracts {detail, errors} from an error body. The errors member is either
// an object of field -> messages or a plain list of messages.
func parseProblem(body []byte) (string, []FieldError) {
	var p problemDetails
	if err := json.Unmarshal(body, &p); err != nil {
		return strings.TrimSpace(string(body)), nil
	}
	detail := p.Detail
	if detail == "" {
		detail = p.Title
	}
	if len(p.Errors) == 0 || string(p.Errors) == "null" {
		return detail, nil
	}

	var byField map[string][]string
	if err := json.Unmarshal(p.Errors, &byField); err == nil {
		fields := make([]string, 0, len(byField))
		for f := range byField {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		out := make([]FieldError, 0, len(fields))
		for _, f := range fields {
			out = append(out, FieldError{Field: f, Messages: byField[f]})
		}
		return detail, out
	}

	var list []string
	if err := json.Unmarshal(p.Errors, &list); err == nil {
		return detail, []FieldError{{Messages: list}}
	}
	return detail, []FieldError{{Messages: []string{string(p.Errors)}}}
}
