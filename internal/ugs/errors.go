package ugs

import (
	"fmt"
	"strings"
)

// RemoteError is returned when the tool reports an error in its JSON output.
type RemoteError struct {
	Op      string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s error; %s", e.Op, e.Message)
}

// ValidationError is returned when a required argument is empty.
type ValidationError struct {
	Op    string
	Field string
	Hint  string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: missing %s", e.Op, e.Field)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// NotFoundError is returned when a build name is absent from the listing.
// Known holds every build name the service returned.
type NotFoundError struct {
	Name  string
	Known []string
}

func (e *NotFoundError) Error() string {
	known := "(none)"
	if len(e.Known) > 0 {
		known = strings.Join(e.Known, ", ")
	}
	return fmt.Sprintf("no build name matching %s; possible build names; %s", e.Name, known)
}
