// Package client is a typed HTTP client for the HoloHeri API. Media
// references in the records it returns are resolved to fetchable URLs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dharsanguruparan/HoloHeri/internal/model"
	"github.com/dharsanguruparan/HoloHeri/internal/site"
	"github.com/dharsanguruparan/HoloHeri/internal/urlresolve"
)

const (
	DefaultPrefix     = "/api/holoheri"
	DefaultLegacyHost = "localhost:3000"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// ListParams filters a listing. Zero values are omitted.
type ListParams struct {
	Page  int
	Limit int
	Tag   string
	Query string
}

// Client talks to one HoloHeri server.
type Client struct {
	origin     string
	prefix     string
	legacyHost string
	http       *http.Client
	resolver   *urlresolve.Resolver

	mu    sync.RWMutex
	token string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithPrefix sets the route prefix the API is mounted under.
func WithPrefix(prefix string) Option {
	return func(c *Client) { c.prefix = "/" + strings.Trim(prefix, "/") }
}

// WithLegacyHost sets the host:port marker of references written by an
// older server configuration. An empty value disables the rewrite.
func WithLegacyHost(host string) Option {
	return func(c *Client) { c.legacyHost = host }
}

// WithToken presets the login token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a Client for the server at origin, e.g. http://localhost:4000.
func New(origin string, opts ...Option) (*Client, error) {
	c := &Client{
		origin:     strings.TrimRight(origin, "/"),
		prefix:     DefaultPrefix,
		legacyHost: DefaultLegacyHost,
		http:       &http.Client{Timeout: 10 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.prefix == "/" {
		c.prefix = ""
	}
	resolver, err := urlresolve.NewResolver(c.origin, c.legacyHost)
	if err != nil {
		return nil, err
	}
	c.resolver = resolver
	return c, nil
}

// Token returns the token stored by the last successful Login.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// ResolveURL turns a stored media reference into a fetchable URL.
func (c *Client) ResolveURL(raw string) string {
	return c.resolver.Resolve(raw)
}

// ListSites fetches one page of sites.
func (c *Client) ListSites(ctx context.Context, p ListParams) (*site.ListResult, error) {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Tag != "" {
		q.Set("tag", p.Tag)
	}
	if p.Query != "" {
		q.Set("q", p.Query)
	}
	path := "/sites"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var res site.ListResult
	if err := c.doJSON(ctx, http.MethodGet, path, nil, "", &res); err != nil {
		return nil, err
	}
	if res.Data == nil {
		res.Data = []model.Site{}
	}
	for i := range res.Data {
		c.resolveMedia(&res.Data[i])
	}
	return &res, nil
}

// GetSite fetches one site.
func (c *Client) GetSite(ctx context.Context, id string) (*model.Site, error) {
	var s model.Site
	if err := c.doJSON(ctx, http.MethodGet, "/sites/"+url.PathEscape(id), nil, "", &s); err != nil {
		return nil, err
	}
	c.resolveMedia(&s)
	return &s, nil
}

// CreateSite submits a new site. files maps media slots to local file paths;
// the multipart body is streamed from disk.
func (c *Client) CreateSite(ctx context.Context, fields map[string]string, files map[model.MediaField]string) (*model.Site, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(mw, fields, files))
	}()

	var out struct {
		Site model.Site `json:"site"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/sites", pr, mw.FormDataContentType(), &out)
	pr.Close()
	if err != nil {
		return nil, err
	}
	c.resolveMedia(&out.Site)
	return &out.Site, nil
}

// UpdateSite applies a partial update of text fields.
func (c *Client) UpdateSite(ctx context.Context, id string, fields map[string]string) (*model.Site, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	var s model.Site
	if err := c.doJSON(ctx, http.MethodPut, "/sites/"+url.PathEscape(id), bytes.NewReader(body), "application/json", &s); err != nil {
		return nil, err
	}
	c.resolveMedia(&s)
	return &s, nil
}

// DeleteSite deletes a site and returns its ID.
func (c *Client) DeleteSite(ctx context.Context, id string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/sites/"+url.PathEscape(id), nil, "", &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Login authenticates and stores the returned token for later requests.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return "", err
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/users/login", bytes.NewReader(body), "application/json", &out); err != nil {
		return "", err
	}
	c.mu.Lock()
	c.token = out.Token
	c.mu.Unlock()
	return out.Token, nil
}

func (c *Client) resolveMedia(s *model.Site) {
	for _, field := range model.MediaFields {
		s.SetMedia(field, c.resolver.Resolve(s.Media(field)))
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.origin+c.prefix+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &msg) == nil && msg.Message != "" {
			apiErr.Message = msg.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func writeMultipart(mw *multipart.Writer, fields map[string]string, files map[model.MediaField]string) error {
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	for field, path := range files {
		if err := copyFile(mw, string(field), path); err != nil {
			return err
		}
	}
	return mw.Close()
}

func copyFile(mw *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	w, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
