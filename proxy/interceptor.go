package proxy

import (
	"net/http"
	"net/url"
	"time"
)

// ResponseAction determines how the proxy should handle a request.
type ResponseAction int

const (
	// ActionAllow forwards the request upstream. Header and body modifiers
	// on the response still apply.
	ActionAllow ResponseAction = iota

	// ActionBlock answers the request with a synthetic error response;
	// nothing is sent upstream.
	ActionBlock
)

// RequestContext provides request information to interceptors.
// This is passed to ShouldIntercept and HandleRequest methods.
type RequestContext struct {
	URL     *url.URL
	Method  string
	Headers http.Header

	Hostname  string
	RequestID string
	StartTime time.Time

	// Interceptor can store custom data
	Data map[string]interface{}
}

// InterceptorResponse is the dispatch shape the proxy server consumes. It is
// produced from an InterceptionHandler once the per-request setup chain has
// run.
type InterceptorResponse struct {
	// Action to take
	Action ResponseAction

	// For Action = Block: status and reason phrase written to the client
	BlockMessage string
	BlockCode    int

	// Replacement request headers applied before the request is replayed
	// upstream. Nil leaves the original headers untouched.
	ModifiedHeaders http.Header

	// ResponseModifier, when set, switches the proxy from streaming to
	// buffer-and-rewrite for this request's response.
	ResponseModifier ResponseModifierFunc
}

// ResponseModifierFunc rewrites a fully buffered HTTP response. It receives
// the upstream status code, headers, and body and returns the versions sent
// to the client; header mutations made here reach the client verbatim.
type ResponseModifierFunc func(statusCode int, headers http.Header, body []byte) (int, http.Header, []byte, error)

// Interceptor processes HTTPS requests for a set of registry hosts and can
// block or rewrite them. Hosts no interceptor claims are tunneled blind.
type Interceptor interface {
	// Name returns the interceptor name for logging
	Name() string

	// ShouldIntercept determines if this interceptor handles the given
	// request. For CONNECT requests this decides MITM vs. blind tunnel.
	ShouldIntercept(ctx *RequestContext) bool

	// HandleRequest processes the request and returns the response action.
	// Called for each request matching ShouldIntercept.
	HandleRequest(ctx *RequestContext) (*InterceptorResponse, error)
}
