package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/foundergraph/enricher/internal/util"
)

// ErrUnavailable is returned by adapter constructors when a required
// credential is absent. Callers treat the source as disabled; construction
// failure must never abort the run.
var ErrUnavailable = errors.New("provider unavailable: credential missing")

// ErrNotFound marks a targeted lookup (e.g. a profile URL) that the provider
// could not resolve.
var ErrNotFound = errors.New("not found")

// ProviderError is a sanitized summary of a failed provider call. Response
// bodies are redacted and truncated before they reach error strings.
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Status     string

	// Snippet is a redacted, truncated hint from the response body.
	Snippet string
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	parts := []string{
		fmt.Sprintf("%s api error: op=%s status=%s", e.Provider, strings.TrimSpace(e.Op), strings.TrimSpace(e.Status)),
	}
	if strings.TrimSpace(e.Snippet) != "" {
		parts = append(parts, "body="+strings.TrimSpace(e.Snippet))
	}
	return strings.Join(parts, " ")
}

// TransientError marks an error as retryable so worker pools back off and
// retry instead of failing the item immediately.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newProviderError(provider, op string, resp *http.Response, body []byte) error {
	pe := &ProviderError{Provider: provider, Op: op}
	if resp != nil {
		pe.StatusCode = resp.StatusCode
		pe.Status = resp.Status
	}
	pe.Snippet = redactAndTruncate(body)

	// Rate limits and server-side failures are worth retrying.
	if pe.StatusCode == http.StatusTooManyRequests || pe.StatusCode/100 == 5 {
		return &TransientError{Err: pe}
	}
	return pe
}

func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	const max = 256
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := util.RedactSecrets(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}

// decodeJSON drains and decodes a 2xx response body, converting decode
// failures into provider errors rather than raw unmarshal errors.
func decodeJSON(provider, op string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &ProviderError{
			Provider: provider,
			Op:       op,
			Snippet:  "malformed payload: " + redactAndTruncate(body),
		}
	}
	return nil
}
