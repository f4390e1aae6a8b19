// Package api is the HTTP JSON client for the Saathi store service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTimeout = 15 * time.Second

	// PlaceholderImage is shown for members without a photo.
	PlaceholderImage = "/static/profile-placeholder.png"
)

// Client talks to one store. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout on a copy of the current http.Client,
// so a client passed to WithHTTPClient is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// SetToken sets the bearer token sent with every request; "" clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// ResolveImageURL turns a stored image reference into a fetchable URL.
func ResolveImageURL(base, path string) string {
	if strings.TrimSpace(path) == "" {
		return PlaceholderImage
	}
	return base + path
}

// ProfileQuery is the server-side filter set for ListProfiles. Zero values are omitted.
type ProfileQuery struct {
	Name            string
	Location        string
	Profession      string
	YearOfBirthFrom int
	YearOfBirthTo   int
	Caste           string
	Religion        string
	Education       string
	Page            int
	Limit           int
}

func (q ProfileQuery) Values() url.Values {
	v := url.Values{}
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	setInt := func(k string, n int) {
		if n > 0 {
			v.Set(k, strconv.Itoa(n))
		}
	}
	set("name", q.Name)
	set("location", q.Location)
	set("profession", q.Profession)
	setInt("yearOfBirthFrom", q.YearOfBirthFrom)
	setInt("yearOfBirthTo", q.YearOfBirthTo)
	set("caste", q.Caste)
	set("religion", q.Religion)
	set("education", q.Education)
	setInt("page", q.Page)
	setInt("limit", q.Limit)
	return v
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/register", req, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, http.MethodPost, "/login", body, &out)
	return out, err
}

// Logout revokes the current token on the store.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil)
}

func (c *Client) CurrentUser(ctx context.Context) (*CurrentUser, error) {
	var out CurrentUser
	if err := c.do(ctx, http.MethodGet, "/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodPut, "/me/profile", upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListProfiles(ctx context.Context, q ProfileQuery) (*ProfilePage, error) {
	path := "/profiles"
	if enc := q.Values().Encode(); enc != "" {
		path += "?" + enc
	}
	var out ProfilePage
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetProfile(ctx context.Context, id int) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodGet, "/profiles/"+strconv.Itoa(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ExpressInterest(ctx context.Context, recipientID int) (Edge, error) {
	return c.edge(ctx, http.MethodPost, fmt.Sprintf("/interests/%d", recipientID))
}

func (c *Client) AcceptInterest(ctx context.Context, senderID int) (Edge, error) {
	return c.edge(ctx, http.MethodPost, fmt.Sprintf("/interests/%d/accept", senderID))
}

func (c *Client) RejectInterest(ctx context.Context, senderID int) (Edge, error) {
	return c.edge(ctx, http.MethodPost, fmt.Sprintf("/interests/%d/reject", senderID))
}

// RemoveInterest deletes the caller's edge to recipientID.
func (c *Client) RemoveInterest(ctx context.Context, recipientID int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/interests/%d", recipientID), nil, nil)
}

// ResendInterest atomically replaces the caller's edge to recipientID with a pending one.
func (c *Client) ResendInterest(ctx context.Context, recipientID int) (Edge, error) {
	return c.edge(ctx, http.MethodPost, fmt.Sprintf("/interests/%d/resend", recipientID))
}

func (c *Client) edge(ctx context.Context, method, path string) (Edge, error) {
	var out Edge
	err := c.do(ctx, method, path, nil, &out)
	return out, err
}

// UploadPhoto sends a JPEG or PNG and returns the stored image reference.
func (c *Client) UploadPhoto(ctx context.Context, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/me/avatar", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		ProfilePhoto string `json:"profile_photo"`
	}
	if err := c.send(req, &out); err != nil {
		return "", err
	}
	return out.ProfilePhoto, nil
}

func (c *Client) RemovePhoto(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/me/avatar", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", req.Method, req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if isJSON(resp.Header.Get("Content-Type")) && json.Unmarshal(raw, &payload) == nil {
			apiErr.Code = payload.Error
		}
		c.logger.Debug("store returned an error",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", apiErr.Status),
			zap.String("code", apiErr.Code))
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if !isJSON(resp.Header.Get("Content-Type")) {
		return &Error{Status: resp.StatusCode, Code: "invalid_response"}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Status: resp.StatusCode, Code: "invalid_response"}
	}
	return nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}
