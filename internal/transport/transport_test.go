package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certprep/qbank/pkg/errors"
)

func TestSupabaseAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}
	(&SupabaseAuth{}).Apply(req, "service-key")

	assert.Equal(t, "service-key", req.Header.Get("apikey"))
	assert.Equal(t, "Bearer service-key", req.Header.Get("Authorization"))
}

func TestNoAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}
	(&NoAuth{}).Apply(req, "service-key")
	assert.Empty(t, req.Header)
}

func TestRequestBuilder(t *testing.T) {
	path := NewRequestBuilder("/rest/v1/questions").
		Select("id").
		Eq("certification_id", "aws").
		In("id", []string{"a", `b"c`}).
		Order("id.asc").
		Range(100, 50).
		Path()

	assert.True(t, strings.HasPrefix(path, "/rest/v1/questions?"))
	assert.Contains(t, path, "certification_id=eq.aws")
	assert.Contains(t, path, "limit=50")
	assert.Contains(t, path, "offset=100")
	assert.Contains(t, path, "select=id")
	assert.Contains(t, path, "id=in.%28%22a%22%2C%22b%5C%22c%22%29")

	assert.Equal(t, "/rest/v1/rpc/exec_sql", NewRequestBuilder("/rest/v1/rpc/exec_sql").Path())
}

func TestParseContentRange(t *testing.T) {
	n, err := ParseContentRange("0-49/120")
	require.NoError(t, err)
	assert.Equal(t, 120, n)

	n, err = ParseContentRange("*/0")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = ParseContentRange("0-49/*")
	assert.Error(t, err)
	_, err = ParseContentRange("")
	assert.Error(t, err)
}

func TestClientAppliesAuthAndDecodesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("apikey"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"code":"23503","message":"violates foreign key constraint","details":"Key is still referenced","hint":null}`)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "k", &SupabaseAuth{})
	assert.Equal(t, srv.URL, c.BaseURL())

	ctx := context.Background()
	req, err := c.NewRequest(ctx, http.MethodDelete, "/rest/v1/questions", nil)
	require.NoError(t, err)
	resp, err := c.DoWithContext(ctx, req)
	require.NoError(t, err)

	err = DecodeResponse(resp, "supabase", nil)
	require.Error(t, err)
	var apiErr *errors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "23503", apiErr.Code)
	assert.Equal(t, "Key is still referenced", apiErr.Details)
	assert.Equal(t, "/rest/v1/questions", apiErr.Endpoint)
	assert.True(t, errors.IsConstraint(err))
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, "", nil)
	req, err := c.NewRequest(context.Background(), http.MethodGet, "/rest/v1/questions", nil)
	require.NoError(t, err)
	_, err = c.DoWithContext(context.Background(), req)
	assert.True(t, errors.IsUnreachable(err))
}

func TestCheckResponsePlainBody(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusBadGateway,
		Body:       io.NopCloser(strings.NewReader("")),
	}
	err := CheckResponse(resp, "supabase")
	var apiErr *errors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Bad Gateway", apiErr.Message)
	assert.ErrorIs(t, err, errors.ErrStoreUnavailable)
}

func TestWithTimeoutLeavesSharedClient(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	c := New("http://localhost", "", nil, WithHTTPClient(shared), WithTimeout(5*time.Second))
	assert.Equal(t, 5*time.Second, c.http.Timeout)
	assert.Equal(t, time.Minute, shared.Timeout)
	assert.NotSame(t, shared, c.http)

	plain := New("http://localhost", "", nil, WithHTTPClient(shared))
	assert.Same(t, shared, plain.http)
}

func TestCheckResponseUnknownTable(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusNotFound,
		Body: io.NopCloser(strings.NewReader(
			`{"code":"PGRST205","message":"Could not find the table 'public.questionz' in the schema cache","details":null,"hint":"Perhaps you meant the table 'public.questions'"}`)),
	}
	err := CheckResponse(resp, "supabase")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.False(t, errors.IsMissingColumn(err))

	var apiErr *errors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Perhaps you meant the table 'public.questions'", apiErr.Hint)
}
