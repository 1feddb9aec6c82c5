package remote

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// fields is a JSON object whose members are read by the service's loose
// rules: a member of the wrong type reads as absent.
type fields map[string]json.RawMessage

// decodeFields reports false when body is not a JSON object.
func decodeFields(body []byte) (fields, bool) {
	var f fields
	if err := json.Unmarshal(body, &f); err != nil || f == nil {
		return nil, false
	}
	return f, true
}

func (f fields) raw(key string) []byte {
	return bytes.TrimSpace(f[key])
}

// str returns the member as a string, or "" when it is not one.
func (f fields) str(key string) string {
	var s string
	if err := json.Unmarshal(f.raw(key), &s); err != nil {
		return ""
	}
	return s
}

// truthy follows JavaScript truthiness: false, 0, "" and null are false,
// everything else present is true.
func (f fields) truthy(key string) bool {
	b := f.raw(key)
	if len(b) == 0 {
		return false
	}
	switch b[0] {
	case 'n', 'f':
		return false
	case 't', '{', '[':
		return true
	case '"':
		return f.str(key) != ""
	}
	v, err := strconv.ParseFloat(string(b), 64)
	return err == nil && v != 0
}

// id returns a string or non-zero numeric identifier in its textual form.
func (f fields) id(key string) string {
	b := f.raw(key)
	if len(b) == 0 {
		return ""
	}
	if b[0] == '"' {
		return f.str(key)
	}
	if b[0] == '-' || (b[0] >= '0' && b[0] <= '9') {
		if f.truthy(key) {
			return string(b)
		}
	}
	return ""
}

// number returns a numeric member, accepting numbers sent as strings.
func (f fields) number(key string) (float64, bool) {
	b := f.raw(key)
	if len(b) == 0 {
		return 0, false
	}

	text := string(b)
	if b[0] == '"' {
		text = strings.TrimSpace(f.str(key))
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
