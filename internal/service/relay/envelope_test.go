package relay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrapPlainDocument(t *testing.T) {
	doc, err := Unwrap([]byte(` {"quoteResponse":{"result":[],"error":null}} `))
	require.NoError(t, err)
	assert.JSONEq(t, `{"quoteResponse":{"result":[],"error":null}}`, string(doc))
}

func TestUnwrapStringContents(t *testing.T) {
	doc, err := Unwrap([]byte(`{"contents":"{\"chart\":{\"result\":[1]}}","status":{"http_code":200}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"chart":{"result":[1]}}`, string(doc))
}

func TestUnwrapObjectContents(t *testing.T) {
	doc, err := Unwrap([]byte(`{"contents":{"chart":{"result":[2]}}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"chart":{"result":[2]}}`, string(doc))
}

func TestUnwrapOnlyOnce(t *testing.T) {
	doc, err := Unwrap([]byte(`{"contents":{"contents":{"x":1}}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"contents":{"x":1}}`, string(doc))
}

func TestUnwrapRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":        `<html>blocked</html>`,
		"string contents": `{"contents":"<html>oops</html>"}`,
		"empty contents":  `{"contents":""}`,
		"null contents":   `{"contents":null}`,
	}
	for name, body := range cases {
		_, err := Unwrap([]byte(body))
		assert.Error(t, err, name)
	}
}

func TestUnwrapUpstreamErrorMarkers(t *testing.T) {
	bodies := []string{
		`{"status":{"error":true}}`,
		`{"chart":{"result":null,"error":{"code":"Not Found"}}}`,
		`{"quoteResponse":{"result":[],"error":"Unauthorized"}}`,
		`{"quoteSummary":{"result":null,"error":{"code":"Unauthorized"}}}`,
		`{"contents":"{\"chart\":{\"error\":{\"code\":\"x\"}}}"}`,
	}
	for _, b := range bodies {
		_, err := Unwrap([]byte(b))
		require.Error(t, err, b)
		assert.True(t, errors.Is(err, errUpstream), b)
	}
}

func TestUnwrapFalsyMarkersPass(t *testing.T) {
	bodies := []string{
		`{"status":200,"chart":{"error":null}}`,
		`{"quoteResponse":{"error":""}}`,
		`{"quoteSummary":{"error":false}}`,
		`{"chart":{"error":0}}`,
		`[1,2,3]`,
	}
	for _, b := range bodies {
		_, err := Unwrap([]byte(b))
		assert.NoError(t, err, b)
	}
}
