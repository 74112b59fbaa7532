// Package oracle wraps the SparkScan address-activity API. It is a cheap
// best-effort pre-filter: the scanner only loads the escrow wallet when the
// oracle reports activity on the invoice address. A failing or garbled oracle
// answer is inconclusive and only delays detection, never denies it.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const DefaultBaseURL = "https://api.sparkscan.io"

// ErrInconclusive means the oracle could not be consulted this cycle. The
// invoice stays pending and is re-evaluated on the next pass.
var ErrInconclusive = errors.New("oracle inconclusive")

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type addressResponse struct {
	TransactionCount *int64 `json:"transactionCount"`
}

// TransactionCount returns the number of transactions SparkScan has seen for
// the address. Non-success statuses and malformed bodies map to
// ErrInconclusive.
func (c *Client) TransactionCount(ctx context.Context, address, network string) (int64, error) {
	endpoint := fmt.Sprintf("%s/v1/address/%s?network=%s", c.baseURL, url.PathEscape(address), url.QueryEscape(network))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInconclusive, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInconclusive, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", ErrInconclusive, resp.StatusCode)
	}

	var body addressResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInconclusive, err)
	}
	if body.TransactionCount == nil {
		return 0, fmt.Errorf("%w: missing transactionCount", ErrInconclusive)
	}
	return *body.TransactionCount, nil
}
