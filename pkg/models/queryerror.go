package models

import "fmt"

// ErrorKind classifies a failed template execution.
type ErrorKind string

const (
	ErrorKindSyntax      ErrorKind = "syntax"
	ErrorKindPermission  ErrorKind = "permission"
	ErrorKindTimeout     ErrorKind = "timeout"
	ErrorKindUnavailable ErrorKind = "unavailable"
)

// QueryError is the normalized form of any warehouse-side failure. A single
// template failure never aborts a batch; synthesis collects these and
// continues with the remaining templates.
type QueryError struct {
	Template string    `json:"template"`
	Kind     ErrorKind `json:"kind"`
	Message  string    `json:"message"`
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("template %q: %s: %s", e.Template, e.Kind, e.Message)
}
