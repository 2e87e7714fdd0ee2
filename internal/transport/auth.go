package transport

import (
	"net/http"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request, apiKey string)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// BearerAuth implements Bearer token authentication.
type BearerAuth struct{}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request, apiKey string) {
	req.Header.Set("Authorization", "Bearer "+apiKey)
}

// HeaderAuth implements custom header authentication.
type HeaderAuth struct {
	Header string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request, apiKey string) {
	req.Header.Set(a.Header, apiKey)
}

// SupabaseAuth sends the project key the way the Supabase gateway expects:
// once in the apikey header and once as a bearer token. The service role key
// bypasses row level security, which the maintenance procedures rely on.
type SupabaseAuth struct{}

// Apply implements the Authenticator interface for SupabaseAuth.
func (a *SupabaseAuth) Apply(req *http.Request, apiKey string) {
	(&HeaderAuth{Header: "apikey"}).Apply(req, apiKey)
	(&BearerAuth{}).Apply(req, apiKey)
}
