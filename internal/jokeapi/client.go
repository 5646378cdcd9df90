package jokeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pders01/quip/internal/config"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 1 << 20

// Client talks to a JokeAPI-compatible HTTP JSON service.
type Client struct {
	client  *http.Client
	baseURL string
	cfg     config.APIConfig
	limiter *rate.Limiter
}

func NewClient(cfg *config.Config) *Client {
	// A zero interval disables throttling
	limit := rate.Inf
	if cfg.API.RateInterval > 0 {
		limit = rate.Every(cfg.API.RateInterval)
	}
	burst := cfg.API.RateBurst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		client: &http.Client{
			Timeout: cfg.API.Timeout,
		},
		baseURL: strings.TrimRight(cfg.API.BaseURL, "/"),
		cfg:     cfg.API,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Categories lists the category names in server order.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var body CategoriesResponse
	if err := c.get(ctx, c.baseURL+"/categories", &body); err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return body.Categories, nil
}

// Jokes fetches up to amount single-part jokes from category. The service may
// return fewer than requested.
func (c *Client) Jokes(ctx context.Context, category string, amount int) ([]string, error) {
	body, err := c.JokeBatch(ctx, category, amount)
	if err != nil {
		return nil, err
	}
	return body.Texts(), nil
}

// JokeBatch is Jokes with the full response, for callers that want ids and
// flags.
func (c *Client) JokeBatch(ctx context.Context, category string, amount int) (*JokesResponse, error) {
	if category == "" {
		return nil, fmt.Errorf("category cannot be empty")
	}
	if amount < 1 {
		amount = 1
	}

	var body JokesResponse
	if err := c.get(ctx, c.jokesURL(category, amount), &body); err != nil {
		return nil, fmt.Errorf("fetching jokes for %s: %w", category, err)
	}
	return &body, nil
}

func (c *Client) jokesURL(category string, amount int) string {
	q := url.Values{}
	q.Set("type", "single")
	q.Set("amount", strconv.Itoa(amount))
	if c.cfg.Lang != "" {
		q.Set("lang", c.cfg.Lang)
	}
	if len(c.cfg.BlacklistFlags) > 0 {
		q.Set("blacklistFlags", strings.Join(c.cfg.BlacklistFlags, ","))
	}

	u := c.baseURL + "/joke/" + url.PathEscape(category) + "?" + q.Encode()
	if c.cfg.SafeMode {
		// safe-mode is a bare flag without a value
		u += "&safe-mode"
	}
	return u
}

func (c *Client) get(ctx context.Context, target string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return apiError(resp.StatusCode, data)
	}

	var flag errorBody
	if err := json.Unmarshal(data, &flag); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if flag.Error {
		return apiError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func apiError(status int, data []byte) *APIError {
	e := &APIError{StatusCode: status}
	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		e.Code = body.Code
		e.Message = body.Message
		if body.AdditionalInfo != "" {
			e.Message = strings.TrimSpace(e.Message + " - " + body.AdditionalInfo)
		}
	}
	return e
}
