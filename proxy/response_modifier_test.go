package proxy

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write(data)
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

func gunzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()

	gr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer gr.Close()

	out, err := io.ReadAll(gr)
	require.NoError(t, err)
	return out
}

func upstreamResponse(body []byte, headers http.Header) *http.Response {
	return &http.Response{
		StatusCode:    http.StatusOK,
		Header:        headers,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

func TestApplyResponseModifierPlainBody(t *testing.T) {
	reqCtx := &RequestContext{RequestID: "test"}

	headers := http.Header{
		"Content-Type": []string{"application/json"},
		"Etag":         []string{`"abc"`},
	}

	modifier := func(statusCode int, headers http.Header, body []byte) (int, http.Header, []byte, error) {
		headers.Del("Etag")
		return statusCode, headers, []byte(`{"rewritten":true}`), nil
	}

	resp, err := applyResponseModifier(reqCtx, upstreamResponse([]byte(`{"original":true}`), headers), modifier)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.JSONEq(t, `{"rewritten":true}`, string(body))
	assert.Empty(t, resp.Header.Get("Etag"), "header mutations must reach the client")
	assert.Equal(t, int64(len(body)), resp.ContentLength)
}

func TestApplyResponseModifierGzipRoundTrip(t *testing.T) {
	reqCtx := &RequestContext{RequestID: "test"}

	original := []byte(`{"name":"lodash","versions":{}}`)
	headers := http.Header{
		"Content-Type":     []string{"application/json"},
		"Content-Encoding": []string{"gzip"},
	}

	var sawBody []byte
	modifier := func(statusCode int, headers http.Header, body []byte) (int, http.Header, []byte, error) {
		sawBody = body
		return statusCode, headers, []byte(`{"name":"lodash"}`), nil
	}

	resp, err := applyResponseModifier(reqCtx, upstreamResponse(gzipBytes(t, original), headers), modifier)
	require.NoError(t, err)

	assert.Equal(t, original, sawBody, "modifier must see the decompressed body")

	wire, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.JSONEq(t, `{"name":"lodash"}`, string(gunzipBytes(t, wire)),
		"rewritten body must be re-compressed for the client")
}

func TestApplyResponseModifierErrorPropagates(t *testing.T) {
	reqCtx := &RequestContext{RequestID: "test"}

	modifier := func(statusCode int, headers http.Header, body []byte) (int, http.Header, []byte, error) {
		return 0, nil, nil, assert.AnError
	}

	_, err := applyResponseModifier(reqCtx, upstreamResponse([]byte("body"), http.Header{}), modifier)
	assert.Error(t, err)
}
