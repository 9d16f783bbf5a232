// Package twizzit talks to the Twizzit club administration API and mirrors
// its organizations, groups and contacts into local clubs, teams and players.
package twizzit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout  = 15 * time.Second
	tokenSkew       = 30 * time.Second
	defaultTokenTTL = time.Hour
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Status int
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twizzit API error: %s returned %d: %s", e.Path, e.Status, e.Body)
}

func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.Status == fasthttp.StatusUnauthorized || apiErr.Status == fasthttp.StatusForbidden)
}

// ID accepts Twizzit identifiers sent either as JSON numbers or strings.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid twizzit id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

type Organization struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

type Group struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Season   string `json:"season"`
	Gender   string `json:"gender"`
	AgeGroup string `json:"age-group"`
}

type Contact struct {
	ID           ID     `json:"id"`
	FirstName    string `json:"first-name"`
	LastName     string `json:"last-name"`
	Gender       string `json:"gender"`
	JerseyNumber *int64 `json:"jersey-number"`
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// API is the subset of Twizzit used by the sync service.
type API interface {
	Authenticate(ctx context.Context) error
	Organizations(ctx context.Context) ([]Organization, error)
	Groups(ctx context.Context, organizationID ID) ([]Group, error)
	Contacts(ctx context.Context, organizationID, groupID ID) ([]Contact, error)
}

type ClientConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
	Clock    clockwork.Clock
}

// Client is a fasthttp based Twizzit client. Tokens are cached until shortly
// before they expire and concurrent refreshes share one request.
type Client struct {
	baseURL  string
	username string
	password string
	timeout  time.Duration
	clock    clockwork.Clock
	http     *fasthttp.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	refresh   singleflight.Group
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		timeout:  cfg.Timeout,
		clock:    cfg.Clock,
		http: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxIdleConnDuration: time.Minute,
		},
	}
}

// Authenticate forces a fresh token.
func (c *Client) Authenticate(ctx context.Context) error {
	c.invalidate()
	_, err := c.accessToken(ctx)
	return err
}

func (c *Client) Organizations(ctx context.Context) ([]Organization, error) {
	return getJSON[[]Organization](ctx, c, "/v2/api/organizations", nil)
}

func (c *Client) Groups(ctx context.Context, organizationID ID) ([]Group, error) {
	query := url.Values{"organization-ids[]": {string(organizationID)}}
	return getJSON[[]Group](ctx, c, "/v2/api/groups", query)
}

func (c *Client) Contacts(ctx context.Context, organizationID, groupID ID) ([]Contact, error) {
	query := url.Values{
		"organization-ids[]": {string(organizationID)},
		"group-ids[]":        {string(groupID)},
	}
	return getJSON[[]Contact](ctx, c, "/v2/api/contacts", query)
}

func (c *Client) cachedToken() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || !c.clock.Now().Before(c.expiresAt.Add(-tokenSkew)) {
		return "", false
	}
	return c.token, true
}

func (c *Client) invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	if token, ok := c.cachedToken(); ok {
		return token, nil
	}
	v, err, _ := c.refresh.Do("token", func() (interface{}, error) {
		if token, ok := c.cachedToken(); ok {
			return token, nil
		}
		body, err := json.Marshal(authRequest{Username: c.username, Password: c.password})
		if err != nil {
			return "", err
		}
		data, err := c.do(ctx, fasthttp.MethodPost, "/v2/api/authenticate", nil, body, "")
		if err != nil {
			return "", err
		}
		var resp authResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return "", fmt.Errorf("decode authenticate response: %w", err)
		}
		if resp.Token == "" {
			return "", errors.New("twizzit: authenticate returned no token")
		}
		ttl := time.Duration(resp.ExpiresIn) * time.Second
		if ttl <= 0 {
			ttl = defaultTokenTTL
		}
		c.mu.Lock()
		c.token = resp.Token
		c.expiresAt = c.clock.Now().Add(ttl)
		c.mu.Unlock()
		return resp.Token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// getJSON performs an authenticated GET, retrying once with a new token when
// the cached one is rejected.
func getJSON[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var result T
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.accessToken(ctx)
		if err != nil {
			return result, err
		}
		data, err := c.do(ctx, fasthttp.MethodGet, path, query, nil, token)
		if err != nil {
			if attempt == 0 && IsUnauthorized(err) {
				c.invalidate()
				continue
			}
			return result, err
		}
		if err := json.Unmarshal(data, &result); err != nil {
			return result, fmt.Errorf("decode %s: %w", path, err)
		}
		return result, nil
	}
	return result, &APIError{Status: fasthttp.StatusUnauthorized, Path: path, Body: "token rejected"}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, token string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := c.baseURL + path
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}
	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("twizzit request %s: %w", path, err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		snippet := string(resp.Body())
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &APIError{Status: status, Path: path, Body: strconv.Quote(snippet)}
	}
	return append([]byte(nil), resp.Body()...), nil
}
