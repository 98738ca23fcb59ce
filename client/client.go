// Package client implements the editor's collaborator interfaces over the
// platform's REST API.
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
	"strings"
	"time"

	"github.com/devlog-app/devlog/editor"
)

// Client talks to a devlog server. It implements editor.ImageUploader,
// editor.TagDirectory and editor.PostWriter.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New builds a client for the given server base URL and bearer token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// envelope is the server's uniform response shape.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Upload sends a multipart request to the upload endpoint and returns the
// public URL of the stored image.
func (c *Client) Upload(ctx context.Context, f editor.File, folder string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", f.Name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", editor.ErrUpload, err)
	}
	if _, err := fw.Write(f.Data); err != nil {
		return "", fmt.Errorf("%w: %v", editor.ErrUpload, err)
	}
	if err := mw.WriteField("folder", folder); err != nil {
		return "", fmt.Errorf("%w: %v", editor.ErrUpload, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", editor.ErrUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	var data struct {
		Image string `json:"image"`
	}
	if err := c.do(req, &data); err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return "", fmt.Errorf("%w: %v", editor.ErrUpload, se)
		}
		return "", err
	}
	return data.Image, nil
}

// Tags fetches the full tag directory.
func (c *Client) Tags(ctx context.Context) ([]editor.Tag, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/tags", nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Items []editor.Tag `json:"items"`
	}
	if err := c.do(req, &data); err != nil {
		return nil, err
	}
	return data.Items, nil
}

// Create persists a new post.
func (c *Client) Create(ctx context.Context, p editor.PostPayload) (editor.Post, error) {
	return c.writePost(ctx, http.MethodPost, c.baseURL+"/api/v1/posts", p)
}

// Update persists changes to the post identified by slug.
func (c *Client) Update(ctx context.Context, slug string, p editor.PostPayload) (editor.Post, error) {
	return c.writePost(ctx, http.MethodPatch, c.baseURL+"/api/v1/posts/"+slug, p)
}

func (c *Client) writePost(ctx context.Context, method, url string, p editor.PostPayload) (editor.Post, error) {
	var post editor.Post
	b, err := json.Marshal(p)
	if err != nil {
		return post, fmt.Errorf("%w: %v", editor.ErrValidation, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(b))
	if err != nil {
		return post, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	var data struct {
		Post editor.Post `json:"post"`
	}
	if err := c.do(req, &data); err != nil {
		return post, err
	}
	return data.Post, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// statusError carries the HTTP status and server message of a failed call.
// It unwraps to the matching editor sentinel so callers can use errors.Is.
type statusError struct {
	status  int
	code    int
	message string
	kind    error
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server returned %d (code %d): %s", e.status, e.code, e.message)
}

func (e *statusError) Unwrap() error { return e.kind }

// do executes the request, maps transport and HTTP failures onto the editor's
// error taxonomy, and decodes the envelope's data field into out.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", editor.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", editor.ErrNetwork, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: invalid response body: %v", editor.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &statusError{status: resp.StatusCode, code: env.Code, message: env.Message}
		switch resp.StatusCode {
		case http.StatusNotFound:
			se.kind = editor.ErrNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			se.kind = editor.ErrUnauthorized
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			se.kind = editor.ErrValidation
		default:
			se.kind = editor.ErrNetwork
		}
		return se
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}
