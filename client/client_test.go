package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlog-app/devlog/editor"
)

func respond(w http.ResponseWriter, status, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    code,
		"message": message,
		"data":    data,
	})
}

func TestClient_Tags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/tags", r.URL.Path)
		respond(w, http.StatusOK, 0, "success", map[string]interface{}{
			"items": []map[string]interface{}{
				{"id": 1, "slug": "go", "name": "Go"},
				{"id": 2, "slug": "web", "name": "Web"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	tags, err := c.Tags(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "go", tags[0].Slug)
	assert.Equal(t, "Web", tags[1].Name)
}

func TestClient_CreateSendsTokenAndDecodesPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/posts", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		var payload editor.PostPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Hello", payload.Title)
		assert.Equal(t, []string{"go"}, payload.Tags)

		respond(w, http.StatusOK, 0, "success", map[string]interface{}{
			"post": map[string]interface{}{
				"slug":   "hello-ab12cd34",
				"title":  "Hello",
				"status": "PUBLISHED",
				"user":   map[string]interface{}{"username": "ada"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok-123")
	post, err := c.Create(context.Background(), editor.PostPayload{
		Title:  "Hello",
		Tags:   []string{"go"},
		Status: "PUBLISHED",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello-ab12cd34", post.Slug)
	assert.Equal(t, "ada", post.User.Username)
}

func TestClient_UpdateTargetsSlug(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/posts/my-post", r.URL.Path)
		respond(w, http.StatusOK, 0, "success", map[string]interface{}{
			"post": map[string]interface{}{"slug": "my-post"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	post, err := c.Update(context.Background(), "my-post", editor.PostPayload{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, "my-post", post.Slug)
}

func TestClient_Upload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(8<<20))
		assert.Equal(t, "posts", r.FormValue("folder"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "cover.png", header.Filename)
		content, _ := io.ReadAll(file)
		assert.Equal(t, []byte("png-bytes"), content)

		respond(w, http.StatusOK, 0, "success", map[string]interface{}{
			"image": "http://cdn.example/static/uploads/posts/x.png",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	url, err := c.Upload(context.Background(), editor.File{
		Name: "cover.png",
		MIME: "image/png",
		Data: []byte("png-bytes"),
	}, "posts")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.example/static/uploads/posts/x.png", url)
}

func TestClient_UploadFailureMapsToUploadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusBadRequest, 40063, "only image files are accepted", nil)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	_, err := c.Upload(context.Background(), editor.File{Name: "x", Data: []byte("x")}, "posts")
	require.Error(t, err)
	assert.ErrorIs(t, err, editor.ErrUpload)
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, editor.ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, editor.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, editor.ErrUnauthorized},
		{"bad request", http.StatusBadRequest, editor.ErrValidation},
		{"unprocessable", http.StatusUnprocessableEntity, editor.ErrValidation},
		{"server error", http.StatusInternalServerError, editor.ErrNetwork},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				respond(w, tc.status, 40400, "nope", nil)
			}))
			defer srv.Close()

			c := New(srv.URL, "tok")
			_, err := c.Create(context.Background(), editor.PostPayload{Title: "t"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestClient_TransportFailureIsNetworkError(t *testing.T) {
	// Point the client at a closed server.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := New(srv.URL, "tok")
	_, err := c.Tags(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, editor.ErrNetwork)
}
