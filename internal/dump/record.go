package dump

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/segmentio/encoding/json"
)

// ErrNoJSON is returned when a dump line has no '{' to start a record.
var ErrNoJSON = errors.New("line has no json object")

// Record is one parsed JSON object from a dump line. Values are kept raw so
// numbers keep their exact digits and absence can be told apart from null.
type Record map[string]json.RawMessage

// Extract returns the JSON object embedded in a dump line. Everything before
// the first '{' is the row key prefix and is discarded.
func Extract(line string) (Record, error) {
	i := strings.IndexByte(line, '{')
	if i < 0 {
		return nil, ErrNoJSON
	}
	return Parse([]byte(line[i:]))
}

// Parse decodes a single JSON object.
func Parse(b []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	if rec == nil {
		return nil, errors.New("parse record: not a json object")
	}
	return rec, nil
}

// Has reports whether key is present, even if null.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// OptString returns the value at key as a string. Absent and null values
// yield "", strings are unquoted and anything else is returned as JSON text.
func (r Record) OptString(key string) string {
	raw, ok := r[key]
	if !ok {
		return ""
	}
	return Scalar(raw)
}

// String returns the string at key, failing when it is absent or not a string.
func (r Record) String(key string) (string, error) {
	raw, ok := r[key]
	if !ok {
		return "", fmt.Errorf("field %q not found", key)
	}
	if kind(raw) != '"' {
		return "", fmt.Errorf("field %q is not a string", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("field %q: %w", key, err)
	}
	return s, nil
}

// OptObject returns the nested object at key. ok is false when the value is
// absent, null or not an object.
func (r Record) OptObject(key string) (Record, bool) {
	raw, found := r[key]
	if !found || kind(raw) != '{' {
		return nil, false
	}
	obj, err := Parse(raw)
	if err != nil {
		return nil, false
	}
	return obj, true
}

// OptArray returns the elements of the array at key. ok is false when the
// value is absent, null or not an array.
func (r Record) OptArray(key string) ([]json.RawMessage, bool) {
	raw, found := r[key]
	if !found || kind(raw) != '[' {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}
	if elems == nil {
		elems = []json.RawMessage{}
	}
	return elems, true
}

// Object decodes a raw array element that must be a JSON object.
func Object(raw json.RawMessage) (Record, error) {
	if kind(raw) != '{' {
		return nil, fmt.Errorf("element is not a json object: %s", truncate(raw, 40))
	}
	return Parse(raw)
}

// Scalar renders a raw JSON value as a string: strings are unquoted, null is
// empty, numbers keep their source digits, and arrays or objects are compacted.
func Scalar(raw json.RawMessage) string {
	switch kind(raw) {
	case 0, 'n':
		return ""
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err == nil {
			return buf.String()
		}
	}
	return string(bytes.TrimSpace(raw))
}

// kind returns the first significant byte of a raw value, 0 when empty.
func kind(raw json.RawMessage) byte {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
