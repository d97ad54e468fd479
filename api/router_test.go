package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"live-docs/observability"
	"live-docs/repositories"
	"live-docs/runtime"
	"live-docs/services"
)

// stubAssist avoids real Anthropic calls in handler tests.
type stubAssist struct{ err error }

func (s stubAssist) CheckGrammar(_ context.Context, text string) (string, error) {
	return "corrected: " + text, s.err
}
func (s stubAssist) Enhance(_ context.Context, text, _ string) (string, error) {
	return "enhanced: " + text, s.err
}
func (s stubAssist) Summarize(_ context.Context, text string) (string, error) {
	return "summary: " + text, s.err
}
func (s stubAssist) Complete(_ context.Context, partial, _, _ string) (string, error) {
	return partial + "...", s.err
}

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	req := require.New(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	req.NoError(err)
	t.Cleanup(func() { _ = writer.Close() })

	documentRepository := repositories.NewDocumentRepository(db, writer, log)
	userRepository := repositories.NewUserRepository(db)

	monitor := observability.NewMonitor(log)
	saver := runtime.NewSaver(log, documentRepository, monitor, time.Second)
	hub := runtime.NewHub(log, runtime.NewRegistry(), saver, monitor)

	router := NewRouter(log,
		services.NewAuthService(userRepository, time.Hour),
		services.NewDocumentService(documentRepository),
		stubAssist{},
		hub,
		http.NotFoundHandler(),
	)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func do(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	request, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func registerUser(t *testing.T, server *httptest.Server, email string) string {
	t.Helper()
	resp := do(t, http.MethodPost, server.URL+"/api/auth/register", "", map[string]string{
		"email":    email,
		"username": "alice",
		"password": "ComplexPass123!",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[map[string]string](t, resp)["token"]
}

func TestAPI_RegisterAndLogin(t *testing.T) {
	req := require.New(t)
	server := newTestAPI(t)

	token := registerUser(t, server, "alice@example.com")
	req.NotEmpty(token)

	// Duplicate registration conflicts
	resp := do(t, http.MethodPost, server.URL+"/api/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"username": "impostor",
		"password": "ComplexPass123!",
	})
	req.Equal(http.StatusConflict, resp.StatusCode)

	// Weak password rejected up front
	resp = do(t, http.MethodPost, server.URL+"/api/auth/register", "", map[string]string{
		"email":    "bob@example.com",
		"username": "bob",
		"password": "weak",
	})
	req.Equal(http.StatusBadRequest, resp.StatusCode)

	// Login with the right and the wrong password
	resp = do(t, http.MethodPost, server.URL+"/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "ComplexPass123!",
	})
	req.Equal(http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPost, server.URL+"/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "WrongPass123!",
	})
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_DocumentsRequireAuth(t *testing.T) {
	req := require.New(t)
	server := newTestAPI(t)

	resp := do(t, http.MethodGet, server.URL+"/api/documents", "", nil)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_DocumentLifecycle(t *testing.T) {
	req := require.New(t)
	server := newTestAPI(t)
	token := registerUser(t, server, "alice@example.com")

	// Create
	resp := do(t, http.MethodPost, server.URL+"/api/documents", token, map[string]string{
		"title":   "Pasta recipes",
		"content": "A collection of pasta dishes and sauces",
	})
	req.Equal(http.StatusCreated, resp.StatusCode)
	created := decodeBody[map[string]any](t, resp)
	documentID := created["id"].(string)
	req.NotEmpty(documentID)

	// List returns summaries without content
	resp = do(t, http.MethodGet, server.URL+"/api/documents", token, nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	summaries := decodeBody[[]map[string]any](t, resp)
	req.Len(summaries, 1)
	req.Equal("Pasta recipes", summaries[0]["title"])
	req.NotContains(summaries[0], "content")

	// Detail carries the content
	resp = do(t, http.MethodGet, server.URL+"/api/documents/"+documentID, token, nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	detail := decodeBody[map[string]any](t, resp)
	req.Equal("A collection of pasta dishes and sauces", detail["content"])

	// Rename and update
	resp = do(t, http.MethodPut, server.URL+"/api/documents/"+documentID, token, map[string]string{"title": "Renamed"})
	req.Equal(http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodPut, server.URL+"/api/documents/"+documentID, token, map[string]string{"content": "fresh content"})
	req.Equal(http.StatusNoContent, resp.StatusCode)

	// Search finds it through the index
	resp = do(t, http.MethodGet, server.URL+"/api/documents/search?q=fresh", token, nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	found := decodeBody[[]map[string]any](t, resp)
	req.Len(found, 1)
	req.Equal("Renamed", found[0]["title"])

	// Delete, then 404
	resp = do(t, http.MethodDelete, server.URL+"/api/documents/"+documentID, token, nil)
	req.Equal(http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodGet, server.URL+"/api/documents/"+documentID, token, nil)
	req.Equal(http.StatusNotFound, resp.StatusCode)
}

func TestAPI_AssistantEndpoints(t *testing.T) {
	req := require.New(t)
	server := newTestAPI(t)
	token := registerUser(t, server, "alice@example.com")

	resp := do(t, http.MethodPost, server.URL+"/api/ai/grammar", token, map[string]string{"text": "teh quick fox"})
	req.Equal(http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	req.Equal("corrected: teh quick fox", body["suggestion"])
}

func TestAPI_Stats(t *testing.T) {
	req := require.New(t)
	server := newTestAPI(t)

	resp := do(t, http.MethodGet, server.URL+"/stats", "", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	stats := decodeBody[map[string]any](t, resp)
	req.Contains(stats, "active_sessions")
	req.Contains(stats, "uptime")
}
