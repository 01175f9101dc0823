package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/dharmasatrya/faresearch/internal/models"
)

// Request is what a Source is asked for: the parsed query plus how many
// offers the page can use.
type Request struct {
	Query models.SearchQuery
	Limit int
}

// Params lists every request field that changes an upstream response. It
// doubles as the cache key parameters.
func (r Request) Params() map[string]string {
	q := r.Query
	return map[string]string{
		"from":       q.Origin,
		"to":         q.Destination,
		"date":       q.DepartureDateString(),
		"returnDate": q.ReturnDateString(),
		"adults":     strconv.Itoa(q.Adults),
		"children":   strconv.Itoa(q.Children),
		"infants":    strconv.Itoa(q.Infants),
		"cabin":      string(q.Cabin),
		"currency":   q.Currency,
		"limit":      strconv.Itoa(r.Limit),
	}
}

// Source is one upstream that can return raw flight offers. Implementations
// apply their own timeout and tag every offer with Name().
type Source interface {
	Name() string
	Fetch(ctx context.Context, req Request) ([]models.RawOffer, error)
}

type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Err:      err,
	}
}

const maxErrorBody = 512

func statusError(provider string, resp *http.Response) *ProviderError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &ProviderError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Err:        errors.New(msg),
	}
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
