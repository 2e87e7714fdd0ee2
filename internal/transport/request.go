package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/certprep/qbank/pkg/errors"
	"github.com/certprep/qbank/pkg/logging"
)

// RequestBuilder assembles PostgREST paths and filters.
type RequestBuilder struct {
	prefix string
	query  url.Values
}

// NewRequestBuilder creates a builder for a path such as /rest/v1/questions.
func NewRequestBuilder(prefix string) *RequestBuilder {
	return &RequestBuilder{prefix: prefix, query: url.Values{}}
}

// Select sets the projected columns.
func (rb *RequestBuilder) Select(columns ...string) *RequestBuilder {
	rb.query.Set("select", strings.Join(columns, ","))
	return rb
}

// Eq adds a column=eq.value filter.
func (rb *RequestBuilder) Eq(column, value string) *RequestBuilder {
	rb.query.Add(column, "eq."+value)
	return rb
}

// In adds a column=in.(...) filter. Values are double quoted so ids that
// contain commas or parentheses survive.
func (rb *RequestBuilder) In(column string, values []string) *RequestBuilder {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	rb.query.Add(column, "in.("+strings.Join(quoted, ",")+")")
	return rb
}

// Order sets the ordering, e.g. "id.asc".
func (rb *RequestBuilder) Order(order string) *RequestBuilder {
	rb.query.Set("order", order)
	return rb
}

// Range sets limit and offset.
func (rb *RequestBuilder) Range(offset, limit int) *RequestBuilder {
	if limit > 0 {
		rb.query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		rb.query.Set("offset", strconv.Itoa(offset))
	}
	return rb
}

// Path returns the path with its encoded query.
func (rb *RequestBuilder) Path() string {
	if len(rb.query) == 0 {
		return rb.prefix
	}
	return rb.prefix + "?" + rb.query.Encode()
}

// postgrestError is the error body PostgREST returns.
type postgrestError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
	Hint    any    `json:"hint"`
}

// CheckResponse converts a non-2xx response into an APIError carrying the
// store's code and raw message. The body is consumed on failure.
func CheckResponse(resp *http.Response, backend string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer closeBody(resp)

	body, _ := io.ReadAll(resp.Body)
	apiErr := errors.NewAPIError(backend, resp.StatusCode, strings.TrimSpace(string(body)))
	if resp.Request != nil && resp.Request.URL != nil {
		apiErr.Endpoint = resp.Request.URL.Path
	}
	var pe postgrestError
	if json.Unmarshal(body, &pe) == nil && (pe.Code != "" || pe.Message != "") {
		apiErr.Code = pe.Code
		apiErr.Message = pe.Message
		apiErr.Details = stringify(pe.Details)
		apiErr.Hint = stringify(pe.Hint)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// DecodeResponse decodes a JSON response into the target structure.
func DecodeResponse(resp *http.Response, backend string, target any) error {
	if err := CheckResponse(resp, backend); err != nil {
		return err
	}
	defer closeBody(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}
	if target == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}
	return nil
}

// ParseContentRange extracts the total from a Content-Range header such as
// "0-49/120" or "*/0".
func ParseContentRange(header string) (int, error) {
	_, total, ok := strings.Cut(header, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("content-range %q carries no total", header)
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("content-range %q: %w", header, err)
	}
	return n, nil
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		logging.Default().Warn().Err(err).Msg("failed to close response body")
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
