package transport

import (
	"net/http"
)

// ModifyHeadersOption is a function type used to modify HTTP headers in a request.
// It takes a function that sets a header key and value, allowing for flexible header modification.
type ModifyHeadersOption func(func(key string, value string))

type modifyHeadersRoundTripper struct {
	roundTripper http.RoundTripper
	options      []ModifyHeadersOption
}

// NewModifyHeadersRoundTripper will add headers to a request.
func NewModifyHeadersRoundTripper(rt http.RoundTripper, opts ...ModifyHeadersOption) http.RoundTripper {
	return &modifyHeadersRoundTripper{roundTripper: rt, options: opts}
}

func (rt *modifyHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for _, opt := range rt.options {
		opt(req.Header.Set)
	}
	return rt.roundTripper.RoundTrip(req)
}

// WithUserAgent is a functional option to set the HTTP client user agent.
func WithUserAgent(userAgent string) ModifyHeadersOption {
	return func(f func(key string, value string)) {
		f("User-Agent", userAgent)
	}
}

// WithAcceptLanguage is a functional option to set the HTTP client accept language.
func WithAcceptLanguage(acceptLanguage string) ModifyHeadersOption {
	return func(f func(key string, value string)) {
		f("Accept-Language", acceptLanguage)
	}
}

// ModifyQueryOption is the query string counterpart of ModifyHeadersOption.
type ModifyQueryOption func(func(key string, value string))

type modifyQueryRoundTripper struct {
	roundTripper http.RoundTripper
	options      []ModifyQueryOption
}

// NewModifyQueryRoundTripper will set query parameters on every request, replacing any value already present.
func NewModifyQueryRoundTripper(rt http.RoundTripper, opts ...ModifyQueryOption) http.RoundTripper {
	return &modifyQueryRoundTripper{roundTripper: rt, options: opts}
}

func (rt *modifyQueryRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	q := req.URL.Query()
	for _, opt := range rt.options {
		opt(q.Set)
	}
	req.URL.RawQuery = q.Encode()
	return rt.roundTripper.RoundTrip(req)
}

// WithQueryParam is a functional option to set an arbitrary query parameter.
func WithQueryParam(key, value string) ModifyQueryOption {
	return func(f func(key string, value string)) {
		f(key, value)
	}
}

// WithAPIKey sets the `apikey` query parameter expected by OMDb.
func WithAPIKey(apiKey string) ModifyQueryOption {
	return WithQueryParam("apikey", apiKey)
}
