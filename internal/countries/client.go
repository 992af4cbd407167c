package countries

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Gateway is the full set of remote operations the core depends on.
// *Client implements it; tests substitute fakes.
type Gateway interface {
	ListCountries(ctx context.Context, page, limit int) ([]Country, error)
	SearchCountries(ctx context.Context, kind FilterKind, query string) ([]Country, error)
	Login(ctx context.Context, creds Credentials) (AuthResponse, error)
	Register(ctx context.Context, reg Registration) (AuthResponse, error)
	Me(ctx context.Context) (User, error)
	ListFavorites(ctx context.Context) ([]Favorite, error)
	AddFavorite(ctx context.Context, fav Favorite) (Favorite, error)
	RemoveFavorite(ctx context.Context, code string) error
}

// Ensure Client implements Gateway at compile time.
var _ Gateway = (*Client)(nil)

// TokenSource supplies the bearer token attached to outgoing requests.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource with a fixed value.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token() string { return string(s) }

// Client talks to the countries HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	tokens    TokenSource
	log       zerolog.Logger
}

const (
	defaultBaseURL   = "http://localhost:5000"
	defaultUserAgent = "atlas/0.1"
	requestTimeout   = 10 * time.Second

	headerRequestID = "X-Request-ID"
)

// Option customizes a Client.
type Option func(*Client)

// WithTokenSource attaches bearer tokens from ts to every request.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient builds a Client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListCountries fetches one page of the bulk listing.
func (c *Client) ListCountries(ctx context.Context, page, limit int) ([]Country, error) {
	if page < 1 {
		page = 1
	}
	values := url.Values{}
	values.Set("page", strconv.Itoa(page))
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	rel := &url.URL{Path: "/api/countries/all", RawQuery: values.Encode()}
	var payload []Country
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// SearchCountries runs a single non-paginated search against the kind endpoint.
func (c *Client) SearchCountries(ctx context.Context, kind FilterKind, query string) ([]Country, error) {
	if !kind.Valid() {
		return nil, errors.Errorf("unknown filter kind %q", kind)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query required")
	}
	rel := &url.URL{
		Path:    "/api/countries/" + string(kind) + "/" + query,
		RawPath: "/api/countries/" + string(kind) + "/" + url.PathEscape(query),
	}
	var payload []Country
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, creds Credentials) (AuthResponse, error) {
	var payload AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", creds, &payload); err != nil {
		return AuthResponse{}, err
	}
	if payload.Token == "" {
		return AuthResponse{}, errors.New("login response missing token")
	}
	return payload, nil
}

// Register creates an account and returns its token.
func (c *Client) Register(ctx context.Context, reg Registration) (AuthResponse, error) {
	var payload AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", reg, &payload); err != nil {
		return AuthResponse{}, err
	}
	if payload.Token == "" {
		return AuthResponse{}, errors.New("register response missing token")
	}
	return payload, nil
}

// Me returns the user identified by the current bearer token.
func (c *Client) Me(ctx context.Context) (User, error) {
	var payload User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &payload); err != nil {
		return User{}, err
	}
	return payload, nil
}

// ListFavorites returns the current user's favorites.
func (c *Client) ListFavorites(ctx context.Context) ([]Favorite, error) {
	var payload []Favorite
	if err := c.do(ctx, http.MethodGet, "/api/favorites", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// AddFavorite saves fav for the current user.
func (c *Client) AddFavorite(ctx context.Context, fav Favorite) (Favorite, error) {
	var payload Favorite
	if err := c.do(ctx, http.MethodPost, "/api/favorites", fav, &payload); err != nil {
		return Favorite{}, err
	}
	return payload, nil
}

// RemoveFavorite deletes the favorite with the given code.
func (c *Client) RemoveFavorite(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return errors.New("favorite code required")
	}
	rel := &url.URL{
		Path:    "/api/favorites/" + code,
		RawPath: "/api/favorites/" + url.PathEscape(code),
	}
	return c.doURL(ctx, http.MethodDelete, rel, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, body, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body, dest any) error {
	if c == nil {
		return errors.New("client is nil")
	}
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return errors.Errorf("create request: %w", err)
	}
	requestID := newRequestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(headerRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := strings.TrimSpace(c.tokens.Token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", rel.Path).Str("request_id", requestID).Msg("request failed")
		return errors.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug().
		Str("method", method).
		Str("path", rel.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("request_id", requestID).
		Msg("api request")

	if resp.StatusCode >= 400 {
		return newAPIError(method, rel.Path, resp)
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return errors.Errorf("decode response: %w", err)
	}
	return nil
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// APIError is returned for HTTP responses with status >= 400.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s %s returned status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.Status)
}

// UserMessage returns the server-provided message, or a generic one.
func (e *APIError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

func newAPIError(method, path string, resp *http.Response) error {
	apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		apiErr.Message = strings.TrimSpace(body.Message)
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(body.Error)
		}
	}
	return apiErr
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// UserMessage extracts a short message suitable for display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return err.Error()
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, errors.Errorf("parse api url %q: %w", raw, err)
	}
	u.Path = ""
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
