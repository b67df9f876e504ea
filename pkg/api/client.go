package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"prism/pkg/models"

	"github.com/rs/zerolog"
)

var DefaultTimeout = 15 * time.Second

// Client talks to the Prism REST backend.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "api").Logger(),
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// do sends the request and decodes the envelope. A body that is not an
// envelope is a decode error; non-2xx responses become *StatusError.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (envelope, error) {
	var env envelope
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return env, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return env, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return env, err
	}
	defer func() { _ = resp.Body.Close() }()
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).Msg("request")

	decodeErr := json.NewDecoder(resp.Body).Decode(&env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return env, &StatusError{Code: resp.StatusCode, Message: env.message()}
	}
	if decodeErr != nil {
		return env, fmt.Errorf("decode response: %w", decodeErr)
	}
	return env, nil
}

// getData is do plus the success check and decoding of data into out.
func (c *Client) getData(ctx context.Context, method, path string, body, out interface{}) error {
	env, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if env.Success != nil && !*env.Success {
		return &UnsuccessfulError{Message: env.message()}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func escape(addr string) string { return url.PathEscape(addr) }

// GetProfile returns the stored profile, or nil when the backend has none.
// Absence may be reported as data:null, as a 404, or as success:false without
// data; all three read as nil. Other failures are errors.
func (c *Client) GetProfile(ctx context.Context, address string) (*models.Profile, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/profile/"+escape(address), nil)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			c.log.Debug().Str("address", address).Msg("profile not found")
			return nil, nil
		}
		return nil, err
	}
	if !hasData(env.Data) {
		return nil, nil
	}
	if env.Success != nil && !*env.Success {
		return nil, &UnsuccessfulError{Message: env.message()}
	}
	var p *models.Profile
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	p.Normalize()
	return p, nil
}

func hasData(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// OnboardResult is the backend's verdict on a generation request.
type OnboardResult struct {
	Success bool
	Message string
}

// Onboard asks the backend to build and store a profile. The result is
// reported even for non-2xx responses when the server sent a message.
func (c *Client) Onboard(ctx context.Context, address string) (OnboardResult, error) {
	body := map[string]interface{}{"address": address, "useAI": true}
	env, err := c.do(ctx, http.MethodPost, "/api/profile/onboard", body)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Message != "" {
			return OnboardResult{Success: false, Message: se.Message}, nil
		}
		return OnboardResult{}, err
	}
	return OnboardResult{Success: env.Success != nil && *env.Success, Message: env.message()}, nil
}

// GetNFTs returns up to limit NFT holdings.
func (c *Client) GetNFTs(ctx context.Context, address string, limit int) ([]models.NFT, error) {
	var data struct {
		NFTs []models.NFT `json:"nfts"`
	}
	path := fmt.Sprintf("/api/nfts/wallet/%s?limit=%d", escape(address), limit)
	if err := c.getData(ctx, http.MethodGet, path, nil, &data); err != nil {
		return []models.NFT{}, &AuxiliaryFetchError{Resource: "nfts", Err: err}
	}
	if data.NFTs == nil {
		return []models.NFT{}, nil
	}
	return data.NFTs, nil
}

// GetPrices quotes the given symbols.
func (c *Client) GetPrices(ctx context.Context, symbols []string) ([]models.PriceTick, error) {
	var data struct {
		Prices []models.PriceTick `json:"prices"`
	}
	body := map[string]interface{}{"symbols": symbols}
	if err := c.getData(ctx, http.MethodPost, "/api/tokens/prices", body, &data); err != nil {
		return nil, &AuxiliaryFetchError{Resource: "prices", Err: err}
	}
	for i := range data.Prices {
		data.Prices[i].Normalize()
	}
	if data.Prices == nil {
		data.Prices = []models.PriceTick{}
	}
	return data.Prices, nil
}

// GetFeed returns the newest activity for address.
func (c *Client) GetFeed(ctx context.Context, address string, limit int) ([]models.ActivityItem, error) {
	var data struct {
		Activities []models.ActivityItem `json:"activities"`
	}
	path := fmt.Sprintf("/api/feed/%s?limit=%d", escape(address), limit)
	if err := c.getData(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, &AuxiliaryFetchError{Resource: "feed", Err: err}
	}
	for i := range data.Activities {
		data.Activities[i].Normalize()
	}
	if data.Activities == nil {
		data.Activities = []models.ActivityItem{}
	}
	return data.Activities, nil
}

func (c *Client) GetComparison(ctx context.Context, address string) (*models.Comparison, error) {
	var out *models.Comparison
	if err := c.getData(ctx, http.MethodGet, "/api/comparison/"+escape(address), nil, &out); err != nil {
		return nil, &AuxiliaryFetchError{Resource: "comparison", Err: err}
	}
	return out, nil
}

func (c *Client) GetRecommendations(ctx context.Context, address string) (*models.Recommendations, error) {
	var out *models.Recommendations
	if err := c.getData(ctx, http.MethodGet, "/api/recommendations/"+escape(address), nil, &out); err != nil {
		return nil, &AuxiliaryFetchError{Resource: "recommendations", Err: err}
	}
	return out, nil
}

// ListSubscriptions returns the webhook subscriptions stored by the backend.
func (c *Client) ListSubscriptions(ctx context.Context) ([]models.TrackedWallet, error) {
	var data struct {
		DatabaseSubscriptions []models.TrackedWallet `json:"databaseSubscriptions"`
	}
	if err := c.getData(ctx, http.MethodGet, "/api/subscriptions", nil, &data); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	if data.DatabaseSubscriptions == nil {
		return []models.TrackedWallet{}, nil
	}
	return data.DatabaseSubscriptions, nil
}

func (c *Client) DeleteSubscription(ctx context.Context, webhookID string) error {
	if err := c.getData(ctx, http.MethodDelete, "/api/subscriptions/"+escape(webhookID), nil, nil); err != nil {
		return fmt.Errorf("delete subscription %s: %w", webhookID, err)
	}
	return nil
}

// Ping reports whether the backend answers HTTP at all, with the round trip time.
func (c *Client) Ping(ctx context.Context) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return 0, 0, err
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, time.Since(start), nil
}
