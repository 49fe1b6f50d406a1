package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/motorline/storefront-go/internal/apperr"
)

// Client talks to the product catalog over HTTP. Every call carries a
// bounded timeout so a slow catalog can never hang a cart mutation.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
}

func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration) *Client {
	u, err := url.Parse(baseURL)
	if err != nil {
		// Fail fast: config error
		panic(fmt.Sprintf("invalid catalog base url %q: %v", baseURL, err))
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: u, http: httpClient, timeout: timeout}
}

func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rel := &url.URL{Path: "/api/catalog/products/" + productID}
	u := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apperr.Internal("build catalog request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Internal("catalog unavailable", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var p Product
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return nil, apperr.Internal("decode catalog response", err)
		}
		if p.ID == "" {
			p.ID = productID
		}
		return &p, nil
	case http.StatusNotFound:
		return nil, apperr.NotFound(fmt.Sprintf("product %s not found", productID))
	default:
		return nil, apperr.Internal(fmt.Sprintf("catalog returned %d for product %s", resp.StatusCode, productID), nil)
	}
}
