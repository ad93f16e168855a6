// Package places proxies the maps/places prospect search. Calls carry
// an explicit timeout so an unresponsive upstream cannot hang a
// dashboard request, and results are cached briefly.
package places

import (
	"context"
	"errors"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"

	"leadchat-service/internal/models"
)

// ErrUnavailable means the upstream search failed or timed out. The
// caller may retry; this client never does.
var ErrUnavailable = errors.New("places search unavailable")

// Client queries the places API.
type Client struct {
	http  *resty.Client
	key   string
	cache *cache.Cache
}

type searchResponse struct {
	Results []struct {
		Name             string  `json:"name"`
		FormattedAddress string  `json:"formatted_address"`
		FormattedPhone   string  `json:"formatted_phone_number"`
		Rating           float64 `json:"rating"`
	} `json:"results"`
	Status string `json:"status"`
}

// NewClient builds a Client against the given base URL.
func NewClient(baseURL, apiKey string) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second)
	return &Client{
		http:  http,
		key:   apiKey,
		cache: cache.New(15*time.Minute, 30*time.Minute),
	}
}

// Search runs a free-text prospect search.
func (c *Client) Search(ctx context.Context, query string) ([]models.Place, error) {
	if cached, ok := c.cache.Get(query); ok {
		return cached.([]models.Place), nil
	}

	var body searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("query", query).
		SetQueryParam("key", c.key).
		SetResult(&body).
		Get("/textsearch/json")
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	if resp.IsError() {
		return nil, ErrUnavailable
	}

	results := make([]models.Place, 0, len(body.Results))
	for _, r := range body.Results {
		results = append(results, models.Place{
			Name:    r.Name,
			Address: r.FormattedAddress,
			Phone:   r.FormattedPhone,
			Rating:  r.Rating,
		})
	}
	c.cache.Set(query, results, cache.DefaultExpiration)
	return results, nil
}
