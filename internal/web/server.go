package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"pdf-chatbot/internal/chat"
	"pdf-chatbot/internal/models"
)

// Server is the browser front-end of a single chat session. Requests that ask a
// question are served one at a time.
type Server struct {
	mu      sync.Mutex
	session *chat.Session
	title   string
	md      goldmark.Markdown
	router  chi.Router
}

type askRequest struct {
	Question string `json:"question"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type pageEntry struct {
	Role string
	HTML template.HTML
}

type pageData struct {
	Title   string
	Entries []pageEntry
	Error   string
}

func NewServer(session *chat.Session, title string) *Server {
	s := &Server{
		session: session,
		title:   title,
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", s.handleIndex)
	r.Post("/ask", s.handleAskForm)
	r.Route("/api", func(r chi.Router) {
		r.Post("/ask", s.handleAskJSON)
		r.Get("/transcript", s.handleTranscript)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, "")
}

func (s *Server) handleAskForm(w http.ResponseWriter, r *http.Request) {
	question := strings.TrimSpace(r.FormValue("question"))
	if question == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if _, err := s.ask(r.Context(), question); err != nil {
		s.renderPage(w, http.StatusBadGateway, err.Error())
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleAskJSON(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question is required"})
		return
	}
	answer, err := s.ask(r.Context(), question)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleTranscript(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Transcript())
}

func (s *Server) ask(ctx context.Context, question string) (models.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	answer, err := s.session.Ask(ctx, question)
	if err != nil {
		log.Error().Err(err).Str("question", question).Msg("Error answering question")
		return models.Answer{}, err
	}
	return answer, nil
}

func (s *Server) renderPage(w http.ResponseWriter, status int, errMsg string) {
	transcript := s.session.Transcript()
	entries := make([]pageEntry, 0, len(transcript))
	for _, e := range transcript {
		entries = append(entries, pageEntry{Role: e.Role, HTML: s.render(e)})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, pageData{Title: s.title, Entries: entries, Error: errMsg}); err != nil {
		log.Error().Err(err).Msg("Error rendering page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// render converts assistant markdown to HTML; user input is shown as plain text
func (s *Server) render(e chat.Entry) template.HTML {
	if e.Role != chat.RoleAssistant {
		return template.HTML(template.HTMLEscapeString(e.Content))
	}
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(e.Content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(e.Content))
	}
	return template.HTML(buf.String())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Error writing response")
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// ListenAndServe serves handler on addr until ctx is cancelled
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting chat server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down chat server")
		return srv.Shutdown(shutdownCtx)
	}
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
.user { background: #eef3ff; }
.assistant { background: #f3f7ee; }
.msg { padding: 0.5rem 1rem; border-radius: 6px; margin: 0.5rem 0; }
.role { font-weight: bold; font-size: 0.8rem; }
.error { color: #b00020; }
form { display: flex; gap: 0.5rem; }
input[name=question] { flex: 1; padding: 0.5rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Entries}}<div class="msg {{.Role}}"><div class="role">{{.Role}}</div>{{.HTML}}</div>
{{end}}{{if .Error}}<p class="error">{{.Error}}</p>
{{end}}<form method="post" action="/ask" onsubmit="this.querySelector('button').textContent='Thinking...'">
<input name="question" placeholder="Ask what!?" autofocus>
<button type="submit">Send</button>
</form>
</body>
</html>
`))
