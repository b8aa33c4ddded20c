// Package server exposes the review API: browse generated batches, edit
// emails before sending, and send them one at a time.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/mailer"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

// Options configures the review API.
type Options struct {
	AllowedOrigins []string
	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Server serves the review API.
type Server struct {
	store      store.Store
	dispatcher *mailer.Dispatcher
	opts       Options
}

// New creates a Server. dispatcher may be nil, in which case sending
// returns 503.
func New(st store.Store, dispatcher *mailer.Dispatcher, opts Options) *Server {
	return &Server{store: st, dispatcher: dispatcher, opts: opts}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/batches", func(r chi.Router) {
		r.Get("/", s.listBatches)
		r.Get("/{id}", s.getBatch)
		r.Get("/{id}/emails", s.listBatchEmails)
	})

	r.Route("/emails", func(r chi.Router) {
		r.Get("/", s.listEmails)
		r.Get("/{id}", s.getEmail)
		r.Patch("/{id}", s.updateEmail)
		r.Post("/{id}/send", s.sendEmail)
	})

	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) listBatches(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit")
	if !ok {
		return
	}
	batches, err := s.store.ListBatches(r.Context(), limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if batches == nil {
		batches = []model.Batch{}
	}
	writeJSON(w, http.StatusOK, batches)
}

func (s *Server) getBatch(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.GetBatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) listBatchEmails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetBatch(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	s.writeEmails(w, r, id)
}

func (s *Server) listEmails(w http.ResponseWriter, r *http.Request) {
	s.writeEmails(w, r, r.URL.Query().Get("batch"))
}

func (s *Server) writeEmails(w http.ResponseWriter, r *http.Request, batchID string) {
	filter := store.EmailFilter{BatchID: batchID}
	if v := r.URL.Query().Get("sent"); v != "" {
		sent, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "sent must be true or false")
			return
		}
		filter.Sent = &sent
	}
	var ok bool
	if filter.Limit, ok = intParam(w, r, "limit"); !ok {
		return
	}
	if filter.Offset, ok = intParam(w, r, "offset"); !ok {
		return
	}

	emails, err := s.store.ListEmails(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if emails == nil {
		emails = []model.EmailRecord{}
	}
	writeJSON(w, http.StatusOK, emails)
}

func (s *Server) getEmail(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.GetEmail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type emailPatch struct {
	Subject *string `json:"subject"`
	Body    *string `json:"body"`
}

func (s *Server) updateEmail(w http.ResponseWriter, r *http.Request) {
	var req emailPatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Subject == nil && req.Body == nil {
		writeError(w, http.StatusBadRequest, "subject or body is required")
		return
	}

	id := chi.URLParam(r, "id")
	e, err := s.store.GetEmail(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	subject, body := e.Subject, e.Body
	if req.Subject != nil {
		subject = strings.TrimSpace(*req.Subject)
	}
	if req.Body != nil {
		body = *req.Body
	}
	if subject == "" || strings.TrimSpace(body) == "" {
		writeError(w, http.StatusBadRequest, "subject and body must not be empty")
		return
	}
	if err := e.Edit(subject, body); err != nil {
		writeStoreError(w, err)
		return
	}

	if err := s.store.UpdateEmailContent(r.Context(), id, subject, body); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) sendEmail(w http.ResponseWriter, r *http.Request) {
	if s.dispatcher == nil {
		writeError(w, http.StatusServiceUnavailable, "email sending is not configured")
		return
	}
	e, err := s.dispatcher.SendByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, model.ErrAlreadySent) {
			writeStoreError(w, err)
			return
		}
		zap.L().Warn("server: send failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "send failed")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrAlreadySent):
		writeError(w, http.StatusConflict, "email already sent")
	default:
		zap.L().Error("server: store error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response", zap.Error(err))
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
