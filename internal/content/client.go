// Package content reads descriptive airport, airline and layout data from the
// content API. Every lookup goes through the cache facade, keyed by resource
// plus code, language and domain.
package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/dharmasatrya/faresearch/internal/cache"
	"github.com/dharmasatrya/faresearch/internal/providers"
)

const (
	ResourceAirport = "airport"
	ResourceAirline = "airline"
	ResourceLayout  = "layout"
)

var ErrNotFound = errors.New("content not found")

type Airport struct {
	Code        string  `json:"code" mapstructure:"code"`
	Name        string  `json:"name" mapstructure:"name"`
	City        string  `json:"city,omitempty" mapstructure:"city"`
	Country     string  `json:"country,omitempty" mapstructure:"country"`
	Description string  `json:"description,omitempty" mapstructure:"description"`
	Latitude    float64 `json:"latitude,omitempty" mapstructure:"latitude"`
	Longitude   float64 `json:"longitude,omitempty" mapstructure:"longitude"`
	Timezone    string  `json:"timezone,omitempty" mapstructure:"timezone"`
}

type Airline struct {
	Code        string `json:"code" mapstructure:"code"`
	Name        string `json:"name" mapstructure:"name"`
	Country     string `json:"country,omitempty" mapstructure:"country"`
	Alliance    string `json:"alliance,omitempty" mapstructure:"alliance"`
	Description string `json:"description,omitempty" mapstructure:"description"`
	LogoURL     string `json:"logo_url,omitempty" mapstructure:"logo_url"`
	CabinBagKg  int    `json:"cabin_bag_kg,omitempty" mapstructure:"cabin_bag_kg"`
}

// Layout is the near-static page chrome: translated labels keyed by id.
type Layout struct {
	Language     string            `json:"language" mapstructure:"language"`
	Domain       string            `json:"domain" mapstructure:"domain"`
	Translations map[string]string `json:"translations" mapstructure:"translations"`
}

type Config struct {
	URL      string
	Timeout  time.Duration
	Language string
	DomainID string
	Client   *http.Client
}

type Client struct {
	baseURL  string
	timeout  time.Duration
	language string
	domain   string
	client   *http.Client
	cache    *cache.Facade
}

func NewClient(cfg Config, facade *cache.Facade) *Client {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if facade == nil {
		facade = cache.NewFacade(cache.NewNoOpStore(), "", cache.DefaultTTLs())
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		timeout:  timeout,
		language: firstNonEmpty(cfg.Language, "en"),
		domain:   firstNonEmpty(cfg.DomainID, "1"),
		client:   client,
		cache:    facade,
	}
}

// Lookup identifies one content request. Empty Language and Domain fall
// back to the client defaults.
type Lookup struct {
	Code     string
	Language string
	Domain   string
}

func (c *Client) params(l Lookup) map[string]string {
	p := map[string]string{
		"lang":   strings.ToLower(firstNonEmpty(l.Language, c.language)),
		"domain": firstNonEmpty(l.Domain, c.domain),
	}
	if l.Code != "" {
		p["code"] = strings.ToUpper(strings.TrimSpace(l.Code))
	}
	return p
}

func (c *Client) Airport(ctx context.Context, l Lookup) (*Airport, error) {
	params := c.params(l)
	key := c.cache.Key(ResourceAirport, params)

	return cache.GetOrFetch(ctx, c.cache, key, c.cache.TTL(cache.ClassContent), func(ctx context.Context) (*Airport, error) {
		var a Airport
		if err := c.get(ctx, "/airports", params, &a); err != nil {
			return nil, err
		}
		if a.Code == "" {
			a.Code = params["code"]
		}
		return &a, nil
	})
}

func (c *Client) Airline(ctx context.Context, l Lookup) (*Airline, error) {
	params := c.params(l)
	key := c.cache.Key(ResourceAirline, params)

	return cache.GetOrFetch(ctx, c.cache, key, c.cache.TTL(cache.ClassContent), func(ctx context.Context) (*Airline, error) {
		var a Airline
		if err := c.get(ctx, "/airlines", params, &a); err != nil {
			return nil, err
		}
		if a.Code == "" {
			a.Code = params["code"]
		}
		return &a, nil
	})
}

func (c *Client) Layout(ctx context.Context, l Lookup) (*Layout, error) {
	l.Code = ""
	params := c.params(l)
	key := c.cache.Key(ResourceLayout, params)

	return cache.GetOrFetch(ctx, c.cache, key, c.cache.TTL(cache.ClassStatic), func(ctx context.Context) (*Layout, error) {
		var layout Layout
		if err := c.get(ctx, "/layout", params, &layout); err != nil {
			return nil, err
		}
		if len(layout.Translations) == 0 {
			return nil, ErrNotFound
		}
		layout.Language = firstNonEmpty(layout.Language, params["lang"])
		layout.Domain = firstNonEmpty(layout.Domain, params["domain"])
		return &layout, nil
	})
}

// get fetches path and decodes the first object of the response into out.
// The API answers with either an object or an array of objects.
func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	if c.baseURL == "" {
		return providers.NewProviderError("content", errors.New("content url not configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	values := url.Values{}
	for name, value := range params {
		values.Set(name, value)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+values.Encode(), nil)
	if err != nil {
		return providers.NewProviderError("content", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return providers.NewProviderError("content", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &providers.ProviderError{
			Provider:   "content",
			StatusCode: resp.StatusCode,
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	var body any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return providers.NewProviderError("content", errors.Wrap(err, "decode response"))
	}

	item, ok := firstObject(body)
	if !ok {
		return ErrNotFound
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return errors.Wrap(decoder.Decode(item), "decode content")
}

func firstObject(v any) (map[string]any, bool) {
	switch node := v.(type) {
	case map[string]any:
		if data, ok := node["data"]; ok {
			return firstObject(data)
		}
		return node, len(node) > 0
	case []any:
		if len(node) == 0 {
			return nil, false
		}
		return firstObject(node[0])
	}
	return nil, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
