package http

import (
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitcase/packages/value"
)

// Response is one completed exchange. Headers keep the first value of each
// field; Duration covers the final attempt only.
type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// BodyValue decodes the body as JSON. A body that is not JSON is returned as
// a string value so it can still be compared and reported.
func (r *Response) BodyValue() value.Value {
	if len(strings.TrimSpace(string(r.Body))) == 0 {
		return value.NullValue()
	}
	v, err := value.Parse(r.Body)
	if err != nil {
		return value.StringValue(string(r.Body))
	}
	return v
}

func (r *Response) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	return strings.Contains(r.ContentType(), "application/json")
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
