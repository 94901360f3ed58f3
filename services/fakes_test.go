package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/foloup/backend/models"
	"github.com/foloup/backend/repository"
	"github.com/stretchr/testify/require"
)

// fakeCompleter answers every completion through respond
type fakeCompleter struct {
	respond func(req CompletionRequest) (string, error)
	calls   atomic.Int32
}

func (f *fakeCompleter) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	f.calls.Add(1)
	content, err := f.respond(req)
	if err != nil {
		return nil, err
	}
	return &CompletionResponse{Content: content}, nil
}

func replyWith(content string) *fakeCompleter {
	return &fakeCompleter{respond: func(CompletionRequest) (string, error) { return content, nil }}
}

func failWith(provider AIProvider, status int) *fakeCompleter {
	return &fakeCompleter{respond: func(CompletionRequest) (string, error) {
		return "", &ProviderError{Provider: provider, StatusCode: status, Err: errors.New("upstream failure")}
	}}
}

// promptRouter picks a reply by looking for a marker in the last message
func promptRouter(routes map[string]string) *fakeCompleter {
	return &fakeCompleter{respond: func(req CompletionRequest) (string, error) {
		last := req.Messages[len(req.Messages)-1].Content
		for marker, reply := range routes {
			if strings.Contains(last, marker) {
				return reply, nil
			}
		}
		return "", fmt.Errorf("no scripted reply for prompt %q", last[:min(len(last), 60)])
	}}
}

func newTestAI(c Completer) *AIService {
	return newAIService(ProviderOpenAI, map[AIProvider]Completer{ProviderOpenAI: c}, nil, nil)
}

func seedUser(t *testing.T, repo *repository.GORMRepository) *models.User {
	t.Helper()
	ctx := context.Background()
	org := &models.Organization{Name: "Acme Hiring"}
	require.NoError(t, repo.CreateOrganization(ctx, org))
	user := &models.User{OrganizationID: org.ID, Email: org.ID + "@acme.io", Role: "user"}
	require.NoError(t, repo.CreateUser(ctx, user))
	return user
}

func seedActiveInterview(t *testing.T, repo *repository.GORMRepository, user *models.User) *models.Interview {
	t.Helper()
	interview := &models.Interview{
		OrganizationID: user.OrganizationID,
		UserID:         user.ID,
		Name:           "Backend Engineer",
		Objective:      "Assess Go and SQL experience",
		Description:    "Go, PostgreSQL, distributed systems",
		Questions: []models.Question{
			{Question: "Tell me about a Go service you built."},
			{Question: "How do you debug a slow query?"},
		},
		IsActive: true,
	}
	require.NoError(t, repo.CreateInterview(context.Background(), interview))
	return interview
}

func seedCandidate(t *testing.T, repo *repository.GORMRepository, user *models.User, interviewID string) *models.Candidate {
	t.Helper()
	candidate := &models.Candidate{
		OrganizationID: user.OrganizationID,
		InterviewID:    interviewID,
		Name:           "Jane Doe",
		Email:          "jane@example.com",
	}
	require.NoError(t, repo.CreateCandidate(context.Background(), candidate))
	return candidate
}

func withUser(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), "user", user))
}

// serveAs routes req through h as the given user
func serveAs(h http.Handler, req *http.Request, user *models.User) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withUser(req, user))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// buildDocx writes a minimal .docx with one paragraph per line
func buildDocx(t *testing.T, lines ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&body, "<w:p><w:r><w:t>%s</w:t></w:r></w:p>", html.EscapeString(l))
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type formFile struct {
	field    string
	filename string
	data     []byte
}

// multipartBody encodes files and fields as a multipart form
func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		w, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = w.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}
