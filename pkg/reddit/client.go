package reddit

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"leadscout/pkg/config"
	errs "leadscout/pkg/errors"
	"leadscout/pkg/logger"
	"leadscout/pkg/models"
)

// DefaultUserAgent identifies the tool when the config does not set one
const DefaultUserAgent = "leadscout/1.0"

// tokenSkew renews a token slightly before Reddit expires it
const tokenSkew = 30 * time.Second

// Client talks to the Reddit OAuth JSON API with a script app's password grant
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	authURL    string
	creds      config.RedditConfig
	logger     logger.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	remaining float64
	now       func() time.Time
}

// NewClient creates a Reddit API client
func NewClient(cfg config.RedditConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "application/json",
		},
		baseURL:   DefaultBaseURL,
		authURL:   DefaultAuthURL,
		creds:     cfg,
		logger:    logger.ForComponent(log, "reddit"),
		remaining: -1,
		now:       time.Now,
	}
	if cfg.BaseURL != "" {
		c.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.AuthURL != "" {
		c.authURL = cfg.AuthURL
	}
	return c
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHTTPClient replaces the underlying HTTP client
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// RateLimitRemaining reports the last X-Ratelimit-Remaining value, or -1 if unknown
func (c *Client) RateLimitRemaining() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Listing fetches one page of a subreddit listing
func (c *Client) Listing(ctx context.Context, subreddit string, q models.ListingQuery) ([]models.ContentItem, error) {
	target := ListingURL(c.baseURL, subreddit, q)

	c.logger.DebugWithFields("fetching listing", map[string]interface{}{
		"subreddit": subreddit,
		"listing":   string(q.Kind),
		"limit":     ClampLimit(q.Limit),
	})

	var listing listingResponse
	if err := c.getJSON(ctx, target, &listing); err != nil {
		return nil, err
	}

	items := make([]models.ContentItem, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if item, ok := child.toContentItem(); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// Submission fetches a single post by id
func (c *Client) Submission(ctx context.Context, id string) (*models.ContentItem, error) {
	var listing listingResponse
	if err := c.getJSON(ctx, SubmissionURL(c.baseURL, StripFullname(id)), &listing); err != nil {
		return nil, err
	}
	for _, child := range listing.Data.Children {
		if item, ok := child.toContentItem(); ok {
			return &item, nil
		}
	}
	return nil, errs.New(errs.ErrorTypeNotFound, http.StatusNotFound, "submission %s not found", id)
}

// accessToken returns a cached bearer token, requesting a new one when needed
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}
	if c.creds.ClientID == "" || c.creds.ClientSecret == "" {
		return "", errs.New(errs.ErrorTypeAuth, http.StatusUnauthorized, "reddit client id and secret are required")
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.creds.Username)
	form.Set("password", c.creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errs.New(errs.ErrorTypeUnknown, 0, "failed to create token request: %v", err)
	}
	req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.doRequest(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return "", err
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse token response: %v", err)
	}
	if token.Error != "" || token.AccessToken == "" {
		reason := cmp.Or(token.Error, "empty access token")
		c.logger.WarnWithFields("token request rejected", map[string]interface{}{
			"reason": reason,
		})
		return "", errs.New(errs.ErrorTypeAuth, http.StatusUnauthorized, "token request rejected: %s", reason)
	}

	ttl := time.Duration(token.ExpiresIn) * time.Second
	if ttl <= tokenSkew {
		ttl = time.Hour
	}
	c.token = token.AccessToken
	c.expiresAt = c.now().Add(ttl - tokenSkew)

	c.logger.DebugWithFields("obtained access token", map[string]interface{}{
		"expires_in": token.ExpiresIn,
		"scope":      token.Scope,
	})
	return c.token, nil
}

// invalidateToken drops the cached token after a 401
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}

	c.trackRateLimit(resp.Header)

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

func (c *Client) trackRateLimit(h http.Header) {
	raw := h.Get("X-Ratelimit-Remaining")
	if raw == "" {
		return
	}
	remaining, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.remaining = remaining
	c.mu.Unlock()
}

// getJSON performs an authorized GET and decodes the JSON response
func (c *Client) getJSON(ctx context.Context, target string, out interface{}) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		if resp.StatusCode == http.StatusUnauthorized {
			c.invalidateToken()
		}
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          target,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON: %v", err)
	}
	return nil
}

// checkResponseStatus maps non-2xx responses onto typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
	}
	e := errs.FromStatusCode(resp.StatusCode, message)
	switch e.Type {
	case errs.ErrorTypeRateLimit:
		c.logger.WarnWithFields("rate limit exceeded", fields)
	case errs.ErrorTypeAuth, errs.ErrorTypeNotFound:
		c.logger.WarnWithFields("request rejected", fields)
	default:
		c.logger.ErrorWithFields("unexpected API error", fields)
	}
	return e
}

var _ Source = (*Client)(nil)

// String describes the client for logs
func (c *Client) String() string {
	return fmt.Sprintf("reddit api client (%s)", c.baseURL)
}
