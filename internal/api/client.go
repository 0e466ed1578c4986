package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// TokenSource returns the bearer token for the current session, or "" when signed out.
type TokenSource func() string

// Client talks to the blogify REST API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithTokenSource sets where the bearer token comes from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// WithLogger sets the client's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a client for baseURL, e.g. http://localhost:8375/api.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		token:      func() string { return "" },
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListPostsOptions filters and pages the post feed.
type ListPostsOptions struct {
	Category string
	Limit    int
	Offset   int
}

func (o ListPostsOptions) query() string {
	q := url.Values{}
	if o.Category != "" {
		q.Set("category", o.Category)
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// Comments

func (c *Client) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	var out []Comment
	if err := c.do(ctx, "list comments", http.MethodGet, "/comments/"+url.PathEscape(postID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateComment(ctx context.Context, postID, content string, parentID *string) (*Comment, error) {
	body := struct {
		PostID   string  `json:"post_id"`
		Content  string  `json:"content"`
		ParentID *string `json:"parent_id,omitempty"`
	}{postID, content, parentID}

	var out Comment
	if err := c.do(ctx, "create comment", http.MethodPost, "/comments", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateComment(ctx context.Context, commentID, content string) (*Comment, error) {
	body := map[string]string{"content": content}
	var out Comment
	if err := c.do(ctx, "update comment", http.MethodPut, "/comments/"+url.PathEscape(commentID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	return c.do(ctx, "delete comment", http.MethodDelete, "/comments/"+url.PathEscape(commentID), nil, nil)
}

// ToggleCommentLike flips the caller's like and returns the new like count.
func (c *Client) ToggleCommentLike(ctx context.Context, commentID string) (int, error) {
	var out struct {
		Likes int `json:"likes"`
	}
	if err := c.do(ctx, "toggle comment like", http.MethodPut, "/comments/"+url.PathEscape(commentID)+"/like", nil, &out); err != nil {
		return 0, err
	}
	return out.Likes, nil
}

// Posts

func (c *Client) ListPosts(ctx context.Context, opts ListPostsOptions) ([]*Post, error) {
	var out []*Post
	if err := c.do(ctx, "list posts", http.MethodGet, "/posts"+opts.query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListMyPosts(ctx context.Context) ([]*Post, error) {
	var out []*Post
	if err := c.do(ctx, "list my posts", http.MethodGet, "/posts/mine", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPost(ctx context.Context, postID string) (*Post, error) {
	var out Post
	if err := c.do(ctx, "get post", http.MethodGet, "/posts/"+url.PathEscape(postID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type postEnvelope struct {
	Post *Post `json:"post"`
}

func (c *Client) CreatePost(ctx context.Context, in PostInput) (*Post, error) {
	return c.postMutation(ctx, "create post", http.MethodPost, "/posts", in)
}

func (c *Client) UpdatePost(ctx context.Context, postID string, in PostInput) (*Post, error) {
	return c.postMutation(ctx, "update post", http.MethodPut, "/posts/"+url.PathEscape(postID), in)
}

func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return c.do(ctx, "delete post", http.MethodDelete, "/posts/"+url.PathEscape(postID), nil, nil)
}

func (c *Client) LikePost(ctx context.Context, postID string) (*Post, error) {
	return c.postMutation(ctx, "like post", http.MethodPut, "/posts/"+url.PathEscape(postID)+"/like", nil)
}

func (c *Client) UnlikePost(ctx context.Context, postID string) (*Post, error) {
	return c.postMutation(ctx, "unlike post", http.MethodPut, "/posts/"+url.PathEscape(postID)+"/unlike", nil)
}

func (c *Client) postMutation(ctx context.Context, op, method, path string, body any) (*Post, error) {
	var out postEnvelope
	if err := c.do(ctx, op, method, path, body, &out); err != nil {
		return nil, err
	}
	if out.Post == nil {
		return nil, &NetworkError{Op: op, Err: errors.New("response has no post")}
	}
	return out.Post, nil
}

// Users and auth

func (c *Client) Signup(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	var out AuthResponse
	if err := c.do(ctx, "signup", http.MethodPost, "/auth/signup", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var out AuthResponse
	if err := c.do(ctx, "login", http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the current token on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "logout", http.MethodPost, "/auth/logout", nil, nil)
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, "get profile", http.MethodGet, "/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := c.do(ctx, "stats", http.MethodGet, "/users/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Features returns the server's feature flags evaluated for the caller.
func (c *Client) Features(ctx context.Context) (map[string]bool, error) {
	out := map[string]bool{}
	if err := c.do(ctx, "features", http.MethodGet, "/features", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateProfile sends a multipart profile update. Nil fields are left unchanged.
func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*User, error) {
	fields := map[string]string{}
	if upd.Name != nil {
		fields["name"] = *upd.Name
	}
	if upd.Password != nil {
		fields["password"] = *upd.Password
	}
	files := map[string]*File{}
	if upd.Avatar != nil {
		files["avatar"] = upd.Avatar
	}

	body, contentType, err := multipartBody(fields, files)
	if err != nil {
		return nil, &NetworkError{Op: "update profile", Err: err}
	}

	var out struct {
		User *User `json:"user"`
	}
	if err := c.send(ctx, "update profile", http.MethodPut, "/users/update", body, contentType, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, &NetworkError{Op: "update profile", Err: errors.New("response has no user")}
	}
	return out.User, nil
}

// UploadImage uploads a post cover image and returns its stored description.
func (c *Client) UploadImage(ctx context.Context, f File) (*Image, error) {
	body, contentType, err := multipartBody(nil, map[string]*File{"image": &f})
	if err != nil {
		return nil, &NetworkError{Op: "upload image", Err: err}
	}
	var out Image
	if err := c.send(ctx, "upload image", http.MethodPost, "/upload", body, contentType, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WSTicket exchanges the session token for a short-lived websocket ticket.
func (c *Client) WSTicket(ctx context.Context) (string, error) {
	var out struct {
		Ticket string `json:"ticket"`
	}
	if err := c.do(ctx, "ws ticket", http.MethodPost, "/ws/ticket", nil, &out); err != nil {
		return "", err
	}
	return out.Ticket, nil
}

func multipartBody(fields map[string]string, files map[string]*File) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	for field, f := range files {
		part, err := w.CreateFormFile(field, f.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

// do sends an optional JSON body and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &NetworkError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.send(ctx, op, method, path, reader, contentType, out)
}

func (c *Client) send(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WarnContext(ctx, "api request failed", "op", op, "method", method, "path", path, "error", err)
		return &NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.DebugContext(ctx, "api request",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		netErr := &NetworkError{Op: op, Status: resp.StatusCode}
		var eb errorBody
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); readErr == nil && json.Unmarshal(data, &eb) == nil {
			netErr.Message = eb.Error
			netErr.Code = eb.Code
		}
		return netErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
