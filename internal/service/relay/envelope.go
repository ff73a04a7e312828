package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	errInvalidJSON   = errors.New("invalid json")
	errEmptyContents = errors.New("relay envelope has no contents")
	errMalformed     = errors.New("relay contents are not json")
	errUpstream      = errors.New("upstream error marker present")
)

// envelope is the wrapper some relays put around the proxied body.
type envelope struct {
	Contents json.RawMessage `json:"contents"`
}

// markerPaths are the upstream objects whose truthy "error" fails an attempt.
var markerPaths = []string{"status", "chart", "quoteResponse", "quoteSummary"}

// Unwrap validates a relay response body, strips one level of
// {"contents": ...} wrapping and rejects documents that carry an upstream
// error marker. It returns the document to decode.
func Unwrap(body []byte) ([]byte, error) {
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return nil, errInvalidJSON
	}

	doc := body
	if isObject(body) {
		var env envelope
		if err := json.Unmarshal(body, &env); err == nil && env.Contents != nil {
			inner, err := contents(env.Contents)
			if err != nil {
				return nil, err
			}
			doc = inner
		}
	}

	if err := checkMarkers(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// contents resolves the envelope payload, which is either embedded JSON or a
// string holding serialized JSON.
func contents(raw json.RawMessage) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return nil, errEmptyContents
	}
	if len(raw) == 0 || raw[0] != '"' {
		return raw, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	inner := bytes.TrimSpace([]byte(s))
	if len(inner) == 0 {
		return nil, errEmptyContents
	}
	if !json.Valid(inner) {
		return nil, errMalformed
	}
	return inner, nil
}

func checkMarkers(doc []byte) error {
	if !isObject(doc) {
		return nil
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(doc, &top); err != nil {
		return errInvalidJSON
	}
	for _, path := range markerPaths {
		raw, ok := top[path]
		if !ok || !isObject(bytes.TrimSpace(raw)) {
			continue
		}
		var inner struct {
			Error json.RawMessage `json:"error"`
		}
		if err := json.Unmarshal(raw, &inner); err == nil && truthy(inner.Error) {
			return fmt.Errorf("%w: %s.error", errUpstream, path)
		}
	}
	return nil
}

func isObject(b []byte) bool {
	return len(b) > 0 && b[0] == '{'
}

// truthy follows JSON-as-boolean rules: null, false, 0, "" and absent are falsy.
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	switch s := string(raw); s {
	case "null", "false", `""`:
		return false
	default:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f != 0
		}
		return true
	}
}
