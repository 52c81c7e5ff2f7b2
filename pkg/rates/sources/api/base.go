// Package api implements the provider fetchers. Each provider wraps one
// external rate API and normalizes its payload into pair tickers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Adamant-im/currencyinfo/pkg/logging"
	"github.com/Adamant-im/currencyinfo/pkg/rates/sources"
	"github.com/Adamant-im/currencyinfo/pkg/version"
)

const requestTimeout = 10 * time.Second

// baseAPI carries what every provider shares: identity, weight and an HTTP
// client with a bounded timeout.
type baseAPI struct {
	name   string
	weight int
	client *http.Client
	logger *logging.Logger
}

func newBaseAPI(name string, weight int, logger *logging.Logger) baseAPI {
	return baseAPI{
		name:   name,
		weight: weight,
		client: &http.Client{Timeout: requestTimeout},
		logger: logger,
	}
}

// ResourceName returns the readable provider name.
func (b *baseAPI) ResourceName() string {
	return b.name
}

// Weight returns the configured provider weight.
func (b *baseAPI) Weight() int {
	return b.weight
}

// getJSON performs a GET request and decodes the JSON response into out.
func (b *baseAPI) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", version.UserAgent())
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d from %s", sources.ErrUnexpectedStatus, resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response from %s: %v", sources.ErrInvalidResponse, url, err)
	}

	return nil
}
