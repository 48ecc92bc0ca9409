// Package jsearch is a client for the JSearch job listings API on RapidAPI.
package jsearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const (
	apiURL     = "https://jsearch.p.rapidapi.com"
	apiHost    = "jsearch.p.rapidapi.com"
	userAgent  = "spigell/asha"
	searchPath = "/search"
	// One page of results is enough for a chat reply.
	numPages = "1"
)

type Client struct {
	apiKey     string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	APIHost    string
}

func New(logger *zap.Logger, apiKey string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:  apiKey,
		logger:  logger,
		APIURL:  apiURL,
		APIHost: apiHost,
		HTTPClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		UserAgent: userAgent,
	}
}

type searchResponse struct {
	Status string `json:"status"`
	Data   []Item `json:"data"`
}

// Item is a raw listing as returned by the API.
type Item map[string]any

// Search returns listings for title in location.
func (c *Client) Search(ctx context.Context, title, location string) (*Listings, error) {
	q := url.Values{}
	q.Set("query", fmt.Sprintf("%s in %s", strings.TrimSpace(title), strings.TrimSpace(location)))
	q.Set("num_pages", numPages)

	var response searchResponse
	if err := c.getJSON(ctx, c.APIURL+searchPath, q, &response); err != nil {
		return nil, err
	}

	c.logger.Debug("got response from JSearch", zap.String("status", response.Status), zap.Int("items", len(response.Data)))

	var items []*Listing
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           &items,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(response.Data); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}

	return &Listings{Items: items}, nil
}
