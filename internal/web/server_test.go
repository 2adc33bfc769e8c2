package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-chatbot/internal/chat"
	"pdf-chatbot/internal/models"
)

type stubAnswerer struct {
	err error
}

func (s stubAnswerer) Ask(_ context.Context, q string) (models.Answer, error) {
	if s.err != nil {
		return models.Answer{}, s.err
	}
	return models.Answer{
		Text:    "**Answer** to " + q,
		Sources: []models.Source{{Source: "cv.pdf", Page: 2}},
	}, nil
}

func newTestServer(t *testing.T, err error) (*httptest.Server, *chat.Session) {
	t.Helper()
	session := chat.NewSession(stubAnswerer{err: err})
	srv := httptest.NewServer(NewServer(session, "Ask me").Handler())
	t.Cleanup(srv.Close)
	return srv, session
}

func TestAskJSON(t *testing.T) {
	srv, session := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/api/ask", "application/json", strings.NewReader(`{"question":" How old are you? "}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var answer models.Answer
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&answer))
	assert.Equal(t, "**Answer** to How old are you?", answer.Text)
	assert.Equal(t, []models.Source{{Source: "cv.pdf", Page: 2}}, answer.Sources)
	assert.Len(t, session.Transcript(), 2)
}

func TestAskJSONBadRequest(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, body := range []string{`not json`, `{"question":"  "}`} {
		resp, err := http.Post(srv.URL+"/api/ask", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestAskJSONFailure(t *testing.T) {
	srv, session := newTestServer(t, errors.New("service unavailable"))

	resp, err := http.Post(srv.URL+"/api/ask", "application/json", strings.NewReader(`{"question":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "service unavailable", body.Error)
	assert.Equal(t, []chat.Entry{{Role: chat.RoleUser, Content: "hi"}}, session.Transcript())
}

func TestAskFormRendersTranscript(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.PostForm(srv.URL+"/ask", url.Values{"question": {"<b>hi</b>"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/", resp.Request.URL.Path)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	page := string(body)
	assert.Contains(t, page, "<title>Ask me</title>")
	assert.Contains(t, page, "&lt;b&gt;hi&lt;/b&gt;")
	assert.Contains(t, page, "<strong>Answer</strong>")
}

func TestAskFormFailure(t *testing.T) {
	srv, _ := newTestServer(t, errors.New("service unavailable"))

	resp, err := http.PostForm(srv.URL+"/ask", url.Values{"question": {"hi"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestTranscriptAndHealth(t *testing.T) {
	srv, session := newTestServer(t, nil)
	session.AddUser("hello")

	resp, err := http.Get(srv.URL + "/api/transcript")
	require.NoError(t, err)
	defer resp.Body.Close()
	var entries []chat.Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	assert.Equal(t, []chat.Entry{{Role: chat.RoleUser, Content: "hello"}}, entries)

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
