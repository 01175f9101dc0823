package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/dharmasatrya/faresearch/internal/models"
)

// PricingSource queries the structured pricing endpoint with a GET and
// query-string parameters.
type PricingSource struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

type PricingConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	Client  *http.Client
}

func NewPricingSource(cfg PricingConfig) *PricingSource {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &PricingSource{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		timeout: timeout,
		client:  client,
	}
}

func (s *PricingSource) Name() string {
	return "pricing"
}

func (s *PricingSource) Fetch(ctx context.Context, req Request) ([]models.RawOffer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, NewProviderError(s.Name(), errors.Wrap(err, "parse base url"))
	}

	values := u.Query()
	for name, value := range req.Params() {
		if value != "" {
			values.Set(name, value)
		}
	}
	values.Set("cabin", req.Query.Cabin.Code())
	u.RawQuery = values.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, NewProviderError(s.Name(), err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("apikey", s.apiKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, NewProviderError(s.Name(), err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, statusError(s.Name(), resp)
	}

	var body models.PricingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, NewProviderError(s.Name(), errors.Wrap(err, "decode response"))
	}

	offers := make([]models.RawOffer, 0, len(body.Data))
	for i := range body.Data {
		offers = append(offers, models.RawOffer{
			Source:  s.Name(),
			Kind:    models.RawPricing,
			Pricing: &body.Data[i],
		})
	}
	return offers, nil
}
