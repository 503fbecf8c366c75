package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"auction-console/internal/auctionerrors"
	"auction-console/internal/models"
	"auction-console/utils"

	"resty.dev/v3"
)

// TokenSource yields the bearer token of the current session. It is read once
// per request, so a logout never affects a request that is already in flight.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to a TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Client talks to the auction REST backend.
type Client struct {
	http   *resty.Client
	tokens TokenSource
}

// NewClient creates a client for baseURL, e.g. http://localhost:8080/api/v1.
// tokens may be nil for unauthenticated use.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetResponseBodyUnlimitedReads(true)

	return &Client{http: rc, tokens: tokens}
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

func (c *Client) request(ctx context.Context, authenticated bool) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if authenticated && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.SetAuthToken(token)
		}
	}
	return req
}

// do executes req and converts transport failures and non-2xx statuses into
// classified errors.
func (c *Client) do(req *resty.Request, method, path string) (*resty.Response, error) {
	start := time.Now()
	res, err := req.Execute(method, path)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		return nil, fmt.Errorf("%s %s: %w: %v", method, path, auctionerrors.ErrServer, err)
	}

	fields := map[string]any{
		"method":  method,
		"path":    path,
		"status":  res.StatusCode(),
		"latency": time.Since(start).String(),
	}
	if res.IsError() || res.StatusCode() >= 300 {
		utils.Warn("api: request failed", fields)
		return nil, fmt.Errorf("%s %s: %w", method, path, auctionerrors.FromStatus(res.StatusCode(), res.String()))
	}
	utils.Debug("api: request completed", fields)
	return res, nil
}

// Login calls POST /auth/login.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (models.AuthResponse, error) {
	var out models.AuthResponse
	_, err := c.do(c.request(ctx, false).SetBody(creds).SetResult(&out), "POST", "/auth/login")
	return out, err
}

// Register calls POST /auth/register.
func (c *Client) Register(ctx context.Context, reg models.Registration) (models.AuthResponse, error) {
	var out models.AuthResponse
	_, err := c.do(c.request(ctx, false).SetBody(reg).SetResult(&out), "POST", "/auth/register")
	return out, err
}

// ListAuctions calls GET /auction/all.
func (c *Client) ListAuctions(ctx context.Context) ([]models.Auction, error) {
	var out []models.Auction
	if _, err := c.do(c.request(ctx, true).SetResult(&out), "GET", "/auction/all"); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// AuctionsBySeller calls GET /auction/user/{userId}.
func (c *Client) AuctionsBySeller(ctx context.Context, userID models.ID) ([]models.Auction, error) {
	var out []models.Auction
	if _, err := c.do(c.request(ctx, true).SetResult(&out), "GET", "/auction/user/"+escape(userID)); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// GetAuction calls GET /auction/{id}.
func (c *Client) GetAuction(ctx context.Context, id models.ID) (models.Auction, error) {
	var out models.Auction
	_, err := c.do(c.request(ctx, true).SetResult(&out), "GET", "/auction/"+escape(id))
	return out, err
}

// CreateAuction calls POST /auction.
func (c *Client) CreateAuction(ctx context.Context, in models.AuctionInput) (models.Auction, error) {
	var out models.Auction
	_, err := c.do(c.request(ctx, true).SetBody(in).SetResult(&out), "POST", "/auction")
	return out, err
}

// UpdateAuction calls PUT /auction/{id}.
func (c *Client) UpdateAuction(ctx context.Context, id models.ID, in models.AuctionInput) (models.Auction, error) {
	var out models.Auction
	_, err := c.do(c.request(ctx, true).SetBody(in).SetResult(&out), "PUT", "/auction/"+escape(id))
	return out, err
}

// DeleteAuction calls DELETE /auction/{id}.
func (c *Client) DeleteAuction(ctx context.Context, id models.ID) error {
	_, err := c.do(c.request(ctx, true), "DELETE", "/auction/"+escape(id))
	return err
}

// ActivateAuction calls POST /auction/activate/{id}. Older backends answer with a
// plain-text confirmation instead of the auction; the listing is then re-fetched.
func (c *Client) ActivateAuction(ctx context.Context, id models.ID) (models.Auction, error) {
	res, err := c.do(c.request(ctx, true), "POST", "/auction/activate/"+escape(id))
	if err != nil {
		return models.Auction{}, err
	}

	var out models.Auction
	if decodeErr := decodeJSON(res.Bytes(), &out); decodeErr == nil && out.ID != "" {
		return out, nil
	}
	return c.GetAuction(ctx, id)
}

// Winner calls GET /auction/winner/{id} and returns the winner's name.
func (c *Client) Winner(ctx context.Context, id models.ID) (string, error) {
	res, err := c.do(c.request(ctx, true).SetHeader("Accept", "text/plain, application/json"), "GET", "/auction/winner/"+escape(id))
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(res.String()), `"`), nil
}

// BidHistory calls GET /bids/auction/{id}.
func (c *Client) BidHistory(ctx context.Context, id models.ID) ([]models.Bid, error) {
	var out []models.Bid
	if _, err := c.do(c.request(ctx, true).SetResult(&out), "GET", "/bids/auction/"+escape(id)); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Bid{}
	}
	return out, nil
}

// PlaceBid calls POST /bids.
func (c *Client) PlaceBid(ctx context.Context, req models.BidRequest) (models.Bid, error) {
	var out models.Bid
	_, err := c.do(c.request(ctx, true).SetBody(req).SetResult(&out), "POST", "/bids")
	return out, err
}

// ListUsers calls GET /admin/users.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if _, err := c.do(c.request(ctx, true).SetResult(&out), "GET", "/admin/users"); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.User{}
	}
	return out, nil
}

// DeleteUser calls DELETE /admin/user/{id}.
func (c *Client) DeleteUser(ctx context.Context, id models.ID) error {
	_, err := c.do(c.request(ctx, true), "DELETE", "/admin/user/"+escape(id))
	return err
}

// AdminDeleteAuction calls DELETE /admin/delete/{id}.
func (c *Client) AdminDeleteAuction(ctx context.Context, id models.ID) error {
	_, err := c.do(c.request(ctx, true), "DELETE", "/admin/delete/"+escape(id))
	return err
}

func decodeJSON(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func escape(id models.ID) string {
	return url.PathEscape(string(id))
}

func nonNil(in []models.Auction) []models.Auction {
	if in == nil {
		return []models.Auction{}
	}
	return in
}
