package proxy

import (
	"fmt"
	"net/http"
	"time"

	"github.com/safedep/dry/log"
)

// MalwareBlockMessage is the status text and body written to the client when
// a known-malicious package download is refused.
const MalwareBlockMessage = "Forbidden - blocked by safe-chain"

// BlockResponse is the synthetic response written instead of contacting the
// upstream registry.
type BlockResponse struct {
	StatusCode int
	Message    string
}

// HeaderModifierFunc rewrites request headers before the request is replayed
// upstream. Modifiers run in registration order, each receiving the previous
// modifier's output.
type HeaderModifierFunc func(headers http.Header) http.Header

// BodyModifierFunc rewrites a fully buffered response body. The headers are
// the upstream response headers; mutations made to them are reflected in the
// response sent to the client.
type BodyModifierFunc func(body []byte, headers http.Header) ([]byte, error)

// MalwareBlockedEvent is emitted once per block decision.
type MalwareBlockedEvent struct {
	PackageName     string
	Version         string
	TargetURL       string
	TimestampMillis int64
}

// MalwareEventSink receives block events. Delivery is synchronous: the sink
// has observed the event before the request handler returns to the proxy, so
// run-level bookkeeping is never behind the wire.
type MalwareEventSink interface {
	MalwareBlocked(event MalwareBlockedEvent)
}

// SetupFunc inspects a request and records block or rewrite decisions on the
// interception context. Setup functions run sequentially; a block decision
// short-circuits the rest of the chain.
type SetupFunc func(ctx *InterceptionContext) error

// InterceptionContext is the mutable, per-request builder populated by setup
// functions. It is discarded once the immutable InterceptionHandler is built.
type InterceptionContext struct {
	request   *RequestContext
	targetURL string

	blockResponse   *BlockResponse
	headerModifiers []HeaderModifierFunc
	bodyModifiers   []BodyModifierFunc

	events MalwareEventSink
}

// Request returns the request being intercepted.
func (c *InterceptionContext) Request() *RequestContext {
	return c.request
}

// TargetURL returns the absolute URL of the request being intercepted.
func (c *InterceptionContext) TargetURL() string {
	return c.targetURL
}

// BlockMalware records a block decision for a known-malicious package and
// emits a MalwareBlockedEvent. Only the first block decision per request is
// recorded.
func (c *InterceptionContext) BlockMalware(packageName, version string) {
	if c.blockResponse != nil {
		return
	}

	c.blockResponse = &BlockResponse{
		StatusCode: http.StatusForbidden,
		Message:    MalwareBlockMessage,
	}

	if c.events != nil {
		c.events.MalwareBlocked(MalwareBlockedEvent{
			PackageName:     packageName,
			Version:         version,
			TargetURL:       c.targetURL,
			TimestampMillis: time.Now().UnixMilli(),
		})
	}
}

// ModifyRequestHeaders appends a request header modifier.
func (c *InterceptionContext) ModifyRequestHeaders(fn HeaderModifierFunc) {
	c.headerModifiers = append(c.headerModifiers, fn)
}

// ModifyBody appends a response body modifier. Registering at least one body
// modifier switches the proxy from streaming to buffer-and-rewrite for this
// request.
func (c *InterceptionContext) ModifyBody(fn BodyModifierFunc) {
	c.bodyModifiers = append(c.bodyModifiers, fn)
}

func (c *InterceptionContext) build() *InterceptionHandler {
	return &InterceptionHandler{
		blockResponse:   c.blockResponse,
		headerModifiers: c.headerModifiers,
		bodyModifiers:   c.bodyModifiers,
	}
}

// InterceptionHandler is the immutable per-request decision produced by the
// setup chain.
type InterceptionHandler struct {
	blockResponse   *BlockResponse
	headerModifiers []HeaderModifierFunc
	bodyModifiers   []BodyModifierFunc
}

// BlockResponse returns the synthetic response to write instead of forwarding
// the request, or nil when the request should be replayed upstream.
func (h *InterceptionHandler) BlockResponse() *BlockResponse {
	return h.blockResponse
}

// ModifyRequestHeaders applies the registered header modifiers in order.
func (h *InterceptionHandler) ModifyRequestHeaders(headers http.Header) http.Header {
	for _, fn := range h.headerModifiers {
		headers = fn(headers)
	}

	return headers
}

// ModifiesResponse reports whether the response body must be buffered and
// rewritten before delivery.
func (h *InterceptionHandler) ModifiesResponse() bool {
	return len(h.bodyModifiers) > 0
}

// ModifyBody applies the registered body modifiers in order over the complete
// upstream body.
func (h *InterceptionHandler) ModifyBody(body []byte, headers http.Header) ([]byte, error) {
	for _, fn := range h.bodyModifiers {
		modified, err := fn(body, headers)
		if err != nil {
			return nil, err
		}

		body = modified
	}

	return body, nil
}

// InterceptorResponse converts the handler into the dispatch shape consumed
// by the proxy server's request hook.
func (h *InterceptionHandler) InterceptorResponse(reqCtx *RequestContext) *InterceptorResponse {
	if h.blockResponse != nil {
		return &InterceptorResponse{
			Action:       ActionBlock,
			BlockCode:    h.blockResponse.StatusCode,
			BlockMessage: h.blockResponse.Message,
		}
	}

	response := &InterceptorResponse{Action: ActionAllow}

	if len(h.headerModifiers) > 0 {
		response.ModifiedHeaders = h.ModifyRequestHeaders(reqCtx.Headers.Clone())
	}

	if h.ModifiesResponse() {
		response.ResponseModifier = func(statusCode int, headers http.Header, body []byte) (int, http.Header, []byte, error) {
			modified, err := h.ModifyBody(body, headers)
			if err != nil {
				return 0, nil, nil, err
			}

			return statusCode, headers, modified, nil
		}
	}

	return response
}

// RequestInterceptor builds a fresh InterceptionHandler for every request by
// running its setup chain over a new InterceptionContext. Interceptors are
// stateless across requests; all per-request state lives on the context.
type RequestInterceptor struct {
	setup  []SetupFunc
	events MalwareEventSink
}

// InterceptRequests creates a RequestInterceptor from a chain of setup
// functions. Block events are delivered to the given sink.
func InterceptRequests(events MalwareEventSink, setup ...SetupFunc) *RequestInterceptor {
	return &RequestInterceptor{
		setup:  setup,
		events: events,
	}
}

// HandleRequest runs the setup chain and returns the built handler.
func (r *RequestInterceptor) HandleRequest(reqCtx *RequestContext) (*InterceptionHandler, error) {
	ctx := &InterceptionContext{
		request:   reqCtx,
		targetURL: targetURLForRequest(reqCtx),
		events:    r.events,
	}

	for _, setup := range r.setup {
		if err := setup(ctx); err != nil {
			return nil, fmt.Errorf("interception setup failed: %w", err)
		}

		if ctx.blockResponse != nil {
			log.Debugf("[%s] Request blocked, skipping remaining setup steps", reqCtx.RequestID)
			break
		}
	}

	return ctx.build(), nil
}

// targetURLForRequest reconstructs the absolute URL of an intercepted
// request. MITM'd requests carry a relative URL, so the hostname is taken
// from the request context.
func targetURLForRequest(reqCtx *RequestContext) string {
	if reqCtx.URL == nil {
		return ""
	}

	if reqCtx.URL.IsAbs() {
		return reqCtx.URL.String()
	}

	return "https://" + reqCtx.Hostname + reqCtx.URL.RequestURI()
}
