// Package decode parses the JSON printed by the ugs tool.
//
// The tool is known to emit doubled separators between array elements
// (https://github.com/Unity-Technologies/unity-gaming-services-cli/issues/2),
// returns a bare object instead of a one-element array, and writes its JSON to
// either stdout or stderr. Output hides those differences.
package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/condensereality/UnityGameHostingAction/internal/runner"
)

// DecodeError is returned when captured output is not valid JSON, or when the
// decoded value does not have the expected shape.
type DecodeError struct {
	Channel string // stdout or stderr; empty for shape errors
	Raw     string // text that failed to decode
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Channel == "" {
		return fmt.Sprintf("unexpected JSON shape (%v); value: %s", e.Err, e.Raw)
	}
	return fmt.Sprintf("failed to parse JSON from %s (%v); raw output: %s", e.Channel, e.Err, e.Raw)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Output decodes both streams of res and returns one value: the stdout value
// when it is truthy, otherwise the stderr value. Either stream failing to
// decode is an error.
func Output(res *runner.Result) (any, error) {
	text, ok := res.StdoutText()
	stdout, err := Channel("stdout", text, ok)
	if err != nil {
		return nil, err
	}

	text, ok = res.StderrText()
	stderr, err := Channel("stderr", text, ok)
	if err != nil {
		return nil, err
	}

	if Truthy(stdout) {
		return stdout, nil
	}
	return stderr, nil
}

// Channel decodes the text captured from one stream. Absent or blank text
// decodes to nil. A one-element array is unwrapped to its element.
func Channel(name, text string, present bool) (any, error) {
	if !present || strings.TrimSpace(text) == "" {
		return nil, nil
	}

	repaired := RepairSeparators(text)

	dec := json.NewDecoder(strings.NewReader(repaired))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &DecodeError{Channel: name, Raw: text, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &DecodeError{Channel: name, Raw: text, Err: fmt.Errorf("trailing data after JSON value")}
	}

	return Unwrap(v), nil
}

// RepairSeparators collapses runs of commas between JSON values into one
// comma. Text inside string literals is never modified. When the repaired
// text holds several top-level values separated by commas, they are wrapped
// in an array.
func RepairSeparators(text string) string {
	var b bytes.Buffer
	b.Grow(len(text) + 2)

	var (
		inString      bool
		escaped       bool
		depth         int
		topLevelComma bool
		last          byte // last non-space byte written outside a string
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		case ',':
			if last == ',' {
				continue
			}
			if depth == 0 {
				topLevelComma = true
			}
		}
		if !isSpace(c) {
			last = c
		}
		b.WriteByte(c)
	}

	if topLevelComma {
		return "[" + b.String() + "]"
	}
	return b.String()
}

// Unwrap returns the sole element of a one-element array, and v otherwise.
func Unwrap(v any) any {
	if arr, ok := v.([]any); ok && len(arr) == 1 {
		return arr[0]
	}
	return v
}

// Truthy reports whether v would count as present: nil, false, zero, and the
// empty string are not. Objects and arrays always are, even when empty.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

// Objects normalises a decoded value into a list of objects. A single object
// becomes a one-element list, nil becomes an empty list, and empty objects are
// dropped.
func Objects(v any) ([]map[string]any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		if len(t) == 0 {
			return nil, nil
		}
		return []map[string]any{t}, nil
	case []any:
		out := make([]map[string]any, 0, len(t))
		for i, elem := range t {
			obj, ok := elem.(map[string]any)
			if !ok {
				return nil, &DecodeError{Raw: fmt.Sprint(v), Err: fmt.Errorf("element %d is %T, not an object", i, elem)}
			}
			if len(obj) == 0 {
				continue
			}
			out = append(out, obj)
		}
		return out, nil
	default:
		return nil, &DecodeError{Raw: fmt.Sprint(v), Err: fmt.Errorf("expected an object or an array of objects, got %T", v)}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
