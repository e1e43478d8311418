package cartsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Remote is the server side of the synchronization.
type Remote interface {
	Fetch(ctx context.Context) (State, error)
	// Replace makes the server cart exactly s.Cart and adds s.Wishlist to the server wishlist.
	Replace(ctx context.Context, s State) error
}

// APIClient talks to the storefront REST API with a session token.
type APIClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client

	csrfToken string
}

// ErrorResponse is the API error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewAPIClient creates a client with its own cookie jar for the CSRF cookie.
func NewAPIClient(baseURL, token string) *APIClient {
	jar, _ := cookiejar.New(nil)
	return &APIClient{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 10 * time.Second, Jar: jar},
	}
}

type cartLine struct {
	ProductID uint   `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color"`
	Size      string `json:"size"`
}

type wishlistEntry struct {
	ProductID uint `json:"product_id"`
}

func (c *APIClient) Fetch(ctx context.Context) (State, error) {
	var cart struct {
		Items []cartLine `json:"items"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/cart", nil, &cart); err != nil {
		return State{}, err
	}
	var wishlist struct {
		Items []wishlistEntry `json:"items"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/wishlist", nil, &wishlist); err != nil {
		return State{}, err
	}

	var s State
	for _, l := range cart.Items {
		s.Cart = append(s.Cart, Line{ProductID: l.ProductID, Quantity: l.Quantity, Color: l.Color, Size: l.Size})
	}
	for _, w := range wishlist.Items {
		s.Wishlist = append(s.Wishlist, w.ProductID)
	}
	return s, nil
}

func (c *APIClient) Replace(ctx context.Context, s State) error {
	items := s.Cart
	if items == nil {
		items = []Line{}
	}
	if err := c.call(ctx, http.MethodPut, "/api/cart", map[string]interface{}{"items": items}, nil); err != nil {
		return err
	}
	if len(s.Wishlist) == 0 {
		return nil
	}
	return c.call(ctx, http.MethodPost, "/api/wishlist/merge", map[string]interface{}{"productIds": s.Wishlist}, nil)
}

func (c *APIClient) ensureCSRF(ctx context.Context) error {
	if c.csrfToken != "" {
		return nil
	}
	var resp struct {
		Token string `json:"csrfToken"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/csrf", nil, &resp); err != nil {
		return fmt.Errorf("failed to get CSRF token: %w", err)
	}
	c.csrfToken = resp.Token
	return nil
}

func (c *APIClient) call(ctx context.Context, method, path string, in, out interface{}) error {
	if method != http.MethodGet {
		if err := c.ensureCSRF(ctx); err != nil {
			return err
		}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("X-CSRF-Token", c.csrfToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err != nil {
			return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("%s %s: %s - %s", method, path, errorResp.Error, errorResp.Message)
	}

	if out != nil {
		return json.Unmarshal(respBody, out)
	}
	return nil
}
