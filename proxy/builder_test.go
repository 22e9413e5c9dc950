package proxy

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEventSink struct {
	events []MalwareBlockedEvent
}

func (r *recordingEventSink) MalwareBlocked(event MalwareBlockedEvent) {
	r.events = append(r.events, event)
}

func testRequestContext(t *testing.T, rawURL string) *RequestContext {
	t.Helper()

	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)

	return &RequestContext{
		URL:      parsed,
		Method:   http.MethodGet,
		Headers:  make(http.Header),
		Hostname: parsed.Hostname(),
	}
}

func TestInterceptRequestsBlocksMalware(t *testing.T) {
	sink := &recordingEventSink{}

	interceptor := InterceptRequests(sink, func(ctx *InterceptionContext) error {
		ctx.BlockMalware("malicious-package", "1.0.0")
		return nil
	})

	reqCtx := testRequestContext(t, "https://registry.npmjs.org/malicious-package/-/malicious-package-1.0.0.tgz")
	handler, err := interceptor.HandleRequest(reqCtx)
	require.NoError(t, err)

	block := handler.BlockResponse()
	require.NotNil(t, block)
	assert.Equal(t, http.StatusForbidden, block.StatusCode)
	assert.Equal(t, "Forbidden - blocked by safe-chain", block.Message)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "malicious-package", sink.events[0].PackageName)
	assert.Equal(t, "1.0.0", sink.events[0].Version)
	assert.Equal(t, "https://registry.npmjs.org/malicious-package/-/malicious-package-1.0.0.tgz", sink.events[0].TargetURL)
	assert.NotZero(t, sink.events[0].TimestampMillis)
}

func TestBlockDecisionShortCircuitsSetupChain(t *testing.T) {
	sink := &recordingEventSink{}
	secondSetupRan := false

	interceptor := InterceptRequests(sink,
		func(ctx *InterceptionContext) error {
			ctx.BlockMalware("malicious-package", "1.0.0")
			return nil
		},
		func(ctx *InterceptionContext) error {
			secondSetupRan = true
			return nil
		},
	)

	_, err := interceptor.HandleRequest(testRequestContext(t, "https://registry.npmjs.org/malicious-package"))
	require.NoError(t, err)

	assert.False(t, secondSetupRan)
	assert.Len(t, sink.events, 1)
}

func TestBlockMalwareFiresExactlyOnce(t *testing.T) {
	sink := &recordingEventSink{}

	interceptor := InterceptRequests(sink, func(ctx *InterceptionContext) error {
		ctx.BlockMalware("first", "1.0.0")
		ctx.BlockMalware("second", "2.0.0")
		return nil
	})

	handler, err := interceptor.HandleRequest(testRequestContext(t, "https://registry.npmjs.org/first"))
	require.NoError(t, err)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "first", sink.events[0].PackageName)
	assert.NotNil(t, handler.BlockResponse())
}

func TestHeaderModifiersApplyInRegistrationOrder(t *testing.T) {
	interceptor := InterceptRequests(nil, func(ctx *InterceptionContext) error {
		ctx.ModifyRequestHeaders(func(headers http.Header) http.Header {
			headers.Set("X-Order", "first")
			return headers
		})
		ctx.ModifyRequestHeaders(func(headers http.Header) http.Header {
			headers.Set("X-Order", headers.Get("X-Order")+",second")
			return headers
		})
		return nil
	})

	handler, err := interceptor.HandleRequest(testRequestContext(t, "https://registry.npmjs.org/lodash"))
	require.NoError(t, err)

	headers := handler.ModifyRequestHeaders(make(http.Header))
	assert.Equal(t, "first,second", headers.Get("X-Order"))
	assert.False(t, handler.ModifiesResponse())
}

func TestBodyModifiersApplyInRegistrationOrder(t *testing.T) {
	interceptor := InterceptRequests(nil, func(ctx *InterceptionContext) error {
		ctx.ModifyBody(func(body []byte, headers http.Header) ([]byte, error) {
			return append(body, []byte("-one")...), nil
		})
		ctx.ModifyBody(func(body []byte, headers http.Header) ([]byte, error) {
			headers.Del("Etag")
			return append(body, []byte("-two")...), nil
		})
		return nil
	})

	handler, err := interceptor.HandleRequest(testRequestContext(t, "https://registry.npmjs.org/lodash"))
	require.NoError(t, err)
	require.True(t, handler.ModifiesResponse())

	headers := http.Header{"Etag": []string{"abc"}}
	body, err := handler.ModifyBody([]byte("body"), headers)
	require.NoError(t, err)

	assert.Equal(t, "body-one-two", string(body))
	assert.Empty(t, headers.Get("Etag"))
}

func TestInterceptorResponseConversion(t *testing.T) {
	t.Run("blocked request", func(t *testing.T) {
		interceptor := InterceptRequests(&recordingEventSink{}, func(ctx *InterceptionContext) error {
			ctx.BlockMalware("malicious-package", "1.0.0")
			return nil
		})

		reqCtx := testRequestContext(t, "https://registry.npmjs.org/malicious-package")
		handler, err := interceptor.HandleRequest(reqCtx)
		require.NoError(t, err)

		response := handler.InterceptorResponse(reqCtx)
		assert.Equal(t, ActionBlock, response.Action)
		assert.Equal(t, http.StatusForbidden, response.BlockCode)
		assert.Equal(t, "Forbidden - blocked by safe-chain", response.BlockMessage)
	})

	t.Run("modified request and response", func(t *testing.T) {
		interceptor := InterceptRequests(nil, func(ctx *InterceptionContext) error {
			ctx.ModifyRequestHeaders(func(headers http.Header) http.Header {
				headers.Set("Accept", "application/json")
				return headers
			})
			ctx.ModifyBody(func(body []byte, headers http.Header) ([]byte, error) {
				headers.Del("Cache-Control")
				return []byte("rewritten"), nil
			})
			return nil
		})

		reqCtx := testRequestContext(t, "https://registry.npmjs.org/lodash")
		reqCtx.Headers.Set("Accept", "application/vnd.npm.install-v1+json")

		handler, err := interceptor.HandleRequest(reqCtx)
		require.NoError(t, err)

		response := handler.InterceptorResponse(reqCtx)
		assert.Equal(t, ActionAllow, response.Action)
		assert.Equal(t, "application/json", response.ModifiedHeaders.Get("Accept"))
		require.NotNil(t, response.ResponseModifier)

		upstream := http.Header{"Cache-Control": []string{"max-age=300"}}
		status, headers, body, err := response.ResponseModifier(http.StatusOK, upstream, []byte("original"))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "rewritten", string(body))
		assert.Empty(t, headers.Get("Cache-Control"))
	})
}

func TestTargetURLForRequest(t *testing.T) {
	tests := []struct {
		name     string
		rawURL   string
		hostname string
		want     string
	}{
		{
			name:   "absolute URL",
			rawURL: "https://registry.npmjs.org/lodash?foo=bar",
			want:   "https://registry.npmjs.org/lodash?foo=bar",
		},
		{
			name:     "relative URL from MITM request",
			rawURL:   "/lodash/-/lodash-4.17.21.tgz",
			hostname: "registry.npmjs.org",
			want:     "https://registry.npmjs.org/lodash/-/lodash-4.17.21.tgz",
		},
		{
			name:     "relative URL with query",
			rawURL:   "/-/v1/search?text=lodash",
			hostname: "registry.npmjs.org",
			want:     "https://registry.npmjs.org/-/v1/search?text=lodash",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := url.Parse(tt.rawURL)
			require.NoError(t, err)

			reqCtx := &RequestContext{URL: parsed, Hostname: tt.hostname}
			if tt.hostname == "" {
				reqCtx.Hostname = parsed.Hostname()
			}

			assert.Equal(t, tt.want, targetURLForRequest(reqCtx))
		})
	}
}
