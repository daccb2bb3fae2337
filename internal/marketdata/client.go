package marketdata

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gradescout/gradescout/internal/metrics"
)

const defaultTimeout = 30 * time.Second

// Client talks to the upstream market-data API. Calls are strictly
// sequential with a fixed inter-request delay to respect upstream rate
// limits. Each logical call is a two-attempt sequence: direct, then
// through the proxy; once a proxied retry succeeds the client keeps
// using the proxy for the rest of its lifetime. The promotion flag is
// client-scoped, so constructing a new Client resets it.
type Client struct {
	direct  *http.Client
	proxied *http.Client // nil when no proxy is configured
	baseURL string
	token   string
	limiter *rate.Limiter

	mu       sync.Mutex
	useProxy bool
}

// NewClient builds a client. proxyURL may be empty, in which case the
// retry attempt goes out directly as well.
func NewClient(baseURL, token, proxyURL string, requestDelay time.Duration) *Client {
	c := &Client{
		direct:  &http.Client{Timeout: defaultTimeout},
		baseURL: baseURL,
		token:   token,
		limiter: rate.NewLimiter(rate.Every(requestDelay), 1),
	}

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			log.Printf("marketdata: invalid PROXY_URL %q: %v (proxy disabled)", proxyURL, err)
		} else {
			c.proxied = &http.Client{
				Timeout:   defaultTimeout,
				Transport: &http.Transport{Proxy: http.ProxyURL(parsed)},
			}
		}
	}

	return c
}

// UsingProxy reports whether a successful proxied retry has promoted
// proxy use for this client.
func (c *Client) UsingProxy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.useProxy
}

// retryable statuses: rate limits and upstream hiccups trigger the
// proxied second attempt; everything else fails fast.
func retryableStatus(code int) bool {
	return code == http.StatusForbidden || code == http.StatusTooManyRequests || code == http.StatusInternalServerError
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	for attempt := 0; attempt < 2; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		isRetry := attempt > 0
		client := c.direct
		if (isRetry || c.UsingProxy()) && c.proxied != nil {
			client = c.proxied
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			// Network errors fail fast; the caller treats this as
			// "no data".
			metrics.MarketAPIRequestsTotal.WithLabelValues(endpoint, "failed").Inc()
			return nil, fmt.Errorf("network error: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to read response: %w", err)
			}
			if isRetry && client == c.proxied {
				log.Printf("marketdata: proxy retry succeeded, using proxy for the rest of the session")
				c.mu.Lock()
				c.useProxy = true
				c.mu.Unlock()
				metrics.MarketAPIProxyPromotions.Inc()
			}
			metrics.MarketAPIRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
			return body, nil
		}

		resp.Body.Close()

		if retryableStatus(resp.StatusCode) && !isRetry {
			log.Printf("marketdata: %s returned %d, retrying through proxy", endpoint, resp.StatusCode)
			metrics.MarketAPIRequestsTotal.WithLabelValues(endpoint, "retried").Inc()
			continue
		}

		metrics.MarketAPIRequestsTotal.WithLabelValues(endpoint, "failed").Inc()
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	metrics.MarketAPIRequestsTotal.WithLabelValues(endpoint, "failed").Inc()
	return nil, fmt.Errorf("request failed on all attempts")
}

// ListSets fetches every known set.
func (c *Client) ListSets(ctx context.Context) ([]byte, error) {
	params := url.Values{}
	params.Set("language", "ENGLISH")
	return c.get(ctx, "/v0/sets", params)
}

// CardsInSet fetches every card in a set with its per-grade price stats.
func (c *Client) CardsInSet(ctx context.Context, setID int) ([]byte, error) {
	params := url.Values{}
	params.Set("set_id", strconv.Itoa(setID))
	params.Set("stats", "true")
	return c.get(ctx, "/api/cards", params)
}

// PopulationByCard fetches the wide grade->count population map for a card.
func (c *Client) PopulationByCard(ctx context.Context, cardID int) ([]byte, error) {
	params := url.Values{}
	params.Set("id", strconv.Itoa(cardID))
	return c.get(ctx, "/api/cards/pops", params)
}

// TransactionsByCard fetches one page of sale transactions for a card.
func (c *Client) TransactionsByCard(ctx context.Context, cardID, page int) ([]byte, error) {
	params := url.Values{}
	params.Set("card_id", strconv.Itoa(cardID))
	params.Set("page", strconv.Itoa(page))
	return c.get(ctx, "/api/transactions", params)
}
