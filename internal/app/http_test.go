package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"inkwell/api/internal/store"
)

// fakeStoreForHealth extends fakeStore with ping functionality
type fakeStoreForHealth struct {
	fakeStore
	pingFn func(context.Context) error
}

func (f *fakeStoreForHealth) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

func newTestServer(fake *fakeStore) *HTTPServer {
	return NewHTTPServer(testService(fake), "*")
}

func doJSON(t *testing.T, server *HTTPServer, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return response
}

func TestHealthEndpoint(t *testing.T) {
	server := NewHTTPServer(newService(testConfig(), &fakeStoreForHealth{}, pgSessionStore{store: &fakeStore{}}, nil), "*")

	rr := doJSON(t, server, http.MethodGet, "/api/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	response := decodeResponse(t, rr)
	if ok, exists := response["ok"]; !exists || ok != true {
		t.Errorf("expected ok=true, got %v", ok)
	}
}

func TestReadyEndpointDatabaseFailure(t *testing.T) {
	fs := &fakeStoreForHealth{
		pingFn: func(context.Context) error {
			return errors.New("connection refused")
		},
	}
	server := NewHTTPServer(newService(testConfig(), fs, pgSessionStore{store: &fakeStore{}}, nil), "*")

	rr := doJSON(t, server, http.MethodGet, "/api/ready", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
	response := decodeResponse(t, rr)
	if status := response["status"]; status != "not_ready" {
		t.Errorf("expected status=not_ready, got %v", status)
	}
}

func TestCORSHeaders(t *testing.T) {
	server := newTestServer(&fakeStore{})

	rr := doJSON(t, server, http.MethodGet, "/api/health", "", nil)
	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected CORS origin=*, got %v", origin)
	}
	if cache := rr.Header().Get("Cache-Control"); cache != "no-store" {
		t.Errorf("expected Cache-Control=no-store, got %v", cache)
	}
}

func TestWriteRoutesRequireAuth(t *testing.T) {
	server := newTestServer(&fakeStore{})

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/posts"},
		{http.MethodPut, "/api/posts/post_1"},
		{http.MethodDelete, "/api/posts/post_1"},
		{http.MethodPost, "/api/posts/post_1/comments"},
		{http.MethodDelete, "/api/comments/cmt_1"},
		{http.MethodGet, "/api/me/posts"},
	} {
		rr := doJSON(t, server, route.method, route.path, "", map[string]any{})
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", route.method, route.path, rr.Code)
		}
	}
}

func TestSignUpThenCreatePost(t *testing.T) {
	users := map[string]store.User{}
	var created store.Post
	fake := &fakeStore{
		createUserFn: func(_ context.Context, user store.User) error {
			users[user.Email] = user
			return nil
		},
		getUserByEmailFn: func(_ context.Context, email string) (store.User, error) {
			if user, ok := users[email]; ok {
				return user, nil
			}
			return store.User{}, sql.ErrNoRows
		},
		insertPostFn: func(_ context.Context, post store.Post, _ []string) error {
			created = post
			return nil
		},
		getPostFn: func(_ context.Context, postID string) (store.Post, error) {
			if created.ID == postID {
				return created, nil
			}
			return store.Post{}, sql.ErrNoRows
		},
	}
	server := newTestServer(fake)

	rr := doJSON(t, server, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email":       "writer@example.com",
		"password":    "password123",
		"displayName": "Writer",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	token, _ := decodeResponse(t, rr)["accessToken"].(string)
	if token == "" {
		t.Fatal("signup response missing access token")
	}

	rr = doJSON(t, server, http.MethodPost, "/api/posts", token, map[string]any{
		"title":       "First Post",
		"body":        "Hello",
		"isPublished": true,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create post: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	response := decodeResponse(t, rr)
	if response["title"] != "First Post" {
		t.Errorf("title = %v, want First Post", response["title"])
	}
	if created.AuthorID == "" {
		t.Error("expected the post author to come from the session")
	}
}

func TestGetPublishedPostIsPublic(t *testing.T) {
	fake := &fakeStore{
		getPostFn: func(_ context.Context, postID string) (store.Post, error) {
			return publishedPost(postID, "usr_owner"), nil
		},
	}
	server := newTestServer(fake)

	rr := doJSON(t, server, http.MethodGet, "/api/posts/post_1", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	response := decodeResponse(t, rr)
	if response["id"] != "post_1" {
		t.Errorf("id = %v, want post_1", response["id"])
	}
	if _, ok := response["comments"]; !ok {
		t.Error("expected comments in the post payload")
	}
}

func TestUnknownPostIs404(t *testing.T) {
	server := newTestServer(&fakeStore{})

	rr := doJSON(t, server, http.MethodGet, "/api/posts/missing", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	response := decodeResponse(t, rr)
	if response["code"] != "NOT_FOUND" {
		t.Errorf("code = %v, want NOT_FOUND", response["code"])
	}
}

func TestValidationFailureIs422(t *testing.T) {
	users := map[string]store.User{}
	fake := &fakeStore{
		createUserFn: func(_ context.Context, user store.User) error {
			users[user.Email] = user
			return nil
		},
		getUserByEmailFn: func(_ context.Context, email string) (store.User, error) {
			if user, ok := users[email]; ok {
				return user, nil
			}
			return store.User{}, sql.ErrNoRows
		},
	}
	server := newTestServer(fake)

	rr := doJSON(t, server, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email":       "writer@example.com",
		"password":    "password123",
		"displayName": "Writer",
	})
	token, _ := decodeResponse(t, rr)["accessToken"].(string)

	rr = doJSON(t, server, http.MethodPost, "/api/posts", token, map[string]any{
		"body": "No title",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rr.Code, rr.Body.String())
	}
	response := decodeResponse(t, rr)
	if response["code"] != "VALIDATION_ERROR" {
		t.Errorf("code = %v, want VALIDATION_ERROR", response["code"])
	}
}
