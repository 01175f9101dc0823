package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/dharmasatrya/faresearch/internal/models"
)

// PartnerSource posts a JSON search to the pricing partner and receives an
// array of offers with nested itineraries.
type PartnerSource struct {
	url     string
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

type PartnerConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	Client  *http.Client
}

func NewPartnerSource(cfg PartnerConfig) *PartnerSource {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &PartnerSource{
		url:     cfg.URL,
		apiKey:  cfg.APIKey,
		timeout: timeout,
		client:  client,
	}
}

func (s *PartnerSource) Name() string {
	return "partner"
}

func (s *PartnerSource) Fetch(ctx context.Context, req Request) ([]models.RawOffer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q := req.Query
	payload, err := json.Marshal(models.PartnerRequest{
		Origin:        q.Origin,
		Destination:   q.Destination,
		DepartureDate: q.DepartureDateString(),
		ReturnDate:    q.ReturnDateString(),
		Adults:        q.Adults,
		Children:      q.Children,
		Infants:       q.Infants,
		CabinClass:    string(q.Cabin),
		Currency:      q.Currency,
		Limit:         req.Limit,
	})
	if err != nil {
		return nil, NewProviderError(s.Name(), errors.Wrap(err, "encode request"))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return nil, NewProviderError(s.Name(), err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, NewProviderError(s.Name(), err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, statusError(s.Name(), resp)
	}

	var body []models.PartnerOffer
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, NewProviderError(s.Name(), errors.Wrap(err, "decode response"))
	}

	offers := make([]models.RawOffer, 0, len(body))
	for i := range body {
		offers = append(offers, models.RawOffer{
			Source:  s.Name(),
			Kind:    models.RawPartner,
			Partner: &body[i],
		})
	}
	return offers, nil
}
