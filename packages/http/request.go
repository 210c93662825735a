package http

import (
	"net/url"
	"time"

	"github.com/abdul-hamid-achik/hitcase/packages/value"
)

// Request is a fully substituted step request. URL is absolute; the runner
// joins the platform base URL before building it.
type Request struct {
	Method      string
	URL         string
	Headers     map[string]string
	QueryParams map[string]string
	Body        []byte
	Timeout     time.Duration
	// VerifySSL overrides the client's certificate validation for this request only.
	VerifySSL *bool
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:      method,
		URL:         requestURL,
		Headers:     make(map[string]string),
		QueryParams: make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetHeaders(headers map[string]string) *Request {
	for k, v := range headers {
		r.Headers[k] = v
	}
	return r
}

// SetJSONBody encodes v as the request body. A null value leaves the body empty.
func (r *Request) SetJSONBody(v value.Value) error {
	if v.IsNull() {
		r.Body = nil
		return nil
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return err
	}
	r.Body = data
	return nil
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

func (r *Request) SetQueryParam(key, value string) *Request {
	r.QueryParams[key] = value
	return r
}

func (r *Request) SetVerifySSL(verify bool) *Request {
	r.VerifySSL = &verify
	return r
}

// BuildURL returns URL with QueryParams merged into its query string.
func (r *Request) BuildURL() string {
	if len(r.QueryParams) == 0 {
		return r.URL
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}

	q := u.Query()
	for k, v := range r.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
