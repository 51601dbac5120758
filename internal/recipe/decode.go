package recipe

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidPayload marks a top-level payload that is not a JSON array.
var ErrInvalidPayload = errors.New("invalid payload")

// PayloadError wraps ErrInvalidPayload with the decoder cause.
type PayloadError struct {
	Cause error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("invalid payload: expected a JSON array: %v", e.Cause)
}

func (e *PayloadError) Unwrap() []error { return []error{ErrInvalidPayload, e.Cause} }

// IsJSONArray reports whether b parses as a JSON array.
func IsJSONArray(b []byte) bool {
	var items []json.RawMessage
	return json.Unmarshal(b, &items) == nil && items != nil
}

// DecodeRaw parses the dump. Numbers are kept as json.Number so that large
// identifiers survive; elements that are not objects are skipped.
func DecodeRaw(b []byte) ([]RawRecipe, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, &PayloadError{Cause: err}
	}
	if items == nil {
		return nil, &PayloadError{Cause: errors.New("null document")}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &PayloadError{Cause: errors.New("trailing data after array")}
	}
	out := make([]RawRecipe, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, RawRecipe(m))
		}
	}
	return out, nil
}

// IndentRaw pretty-prints the raw dump without re-encoding it, so key order
// and number formatting stay as delivered.
func IndentRaw(b []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := json.Indent(&out, bytes.TrimSpace(b), "", "  "); err != nil {
		return nil, &PayloadError{Cause: err}
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
