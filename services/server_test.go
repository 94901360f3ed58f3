package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/foloup/backend/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	return &Config{
		Server: ServerConfig{Port: "0", Environment: "development"},
		AI:     AIConfig{Provider: "openai"},
		Upload: UploadConfig{Dir: t.TempDir()},
		Links:  LinkConfig{LiveURL: "http://localhost:3000"},
		Calls:  CallConfig{IdleTimeout: DefaultIdleTimeout, MaxDuration: DefaultMaxDuration},
	}
}

func TestServer_WithoutDatabase(t *testing.T) {
	s := NewServer(testConfig(t))
	require.NoError(t, s.InitializeServices())
	r := s.SetupRoutes()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok", "database": "not configured"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message": "FoloUp API v1", "version": "1.0.0"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/interviews/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Routes(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWT.Secret = "test-secret"

	s := NewServer(cfg)
	s.SetDatabase(repository.NewTestRepository(t), nil)
	s.SetAIService(newTestAI(replyWith("{}")))
	require.NoError(t, s.InitializeServices())
	r := s.SetupRoutes()

	do := func(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok", "database": "up"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/v1/ats/health", "").Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/api/v1/public/interview/unknown-link/", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/api/v1/interviews/", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodPost, "/api/v1/ats/match", "").Code)

	signup := do(http.MethodPost, "/api/v1/auth/signup", `{"email": "owner@acme.io", "password": "pw", "full_name": "Olive Owner"}`)
	require.Equal(t, http.StatusCreated, signup.Code, signup.Body.String())

	var access *http.Cookie
	for _, c := range signup.Result().Cookies() {
		if c.Name == accessCookie {
			access = c
		}
	}
	require.NotNil(t, access)

	rec = do(http.MethodGet, "/api/v1/interviews/", "", access)
	require.Equal(t, http.StatusOK, rec.Code)
	var list GetInterviewsResponse
	decodeBody(t, rec, &list)
	assert.Equal(t, 0, list.Count)

	rec = do(http.MethodGet, "/api/v1/ai-provider/", "", access)
	assert.Equal(t, http.StatusOK, rec.Code)
}
