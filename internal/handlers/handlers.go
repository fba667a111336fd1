// Package handlers implements one HTTP handler per endpoint plus the route
// table. Every handler decodes a typed JSON request body, runs a single
// domain operation under the store lock, and writes a typed JSON response.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"btasks/internal/apperr"
	"btasks/internal/store"
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	store *store.Store
}

// New creates a new Handlers instance.
func New(s *store.Store) *Handlers {
	return &Handlers{store: s}
}

// Router builds the route table. Routing is exact-match on (method, path);
// any other combination answers 404 with an empty body.
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	notFound := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/", h.ListProjects)
	r.Get("/project", h.ProjectDetail)
	r.Get("/task", h.TaskDetail)

	r.Post("/project/create", h.CreateProject)
	r.Post("/project/delete", h.DeleteProject)
	r.Post("/project/name", h.RenameProject)
	r.Post("/project/description", h.RedescribeProject)

	r.Post("/task/create", h.CreateTask)
	r.Post("/task/delete", h.DeleteTask)
	r.Post("/task/title", h.EditTaskTitle)
	r.Post("/task/description", h.EditTaskDescription)
	r.Post("/task/state", h.ChangeTaskState)
	r.Post("/task/comment", h.AddTaskComment)
	r.Post("/task/dependency", h.MutateTaskDependency)

	return r
}

// requestLogger records each request at debug level, keeping the standard
// streams quiet unless verbose logging is switched on.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

// statusBody is the uniform envelope for plain-OK responses and all errors.
type statusBody struct {
	Status      int    `json:"status"`
	Description string `json:"description"`
}

// decode reads the entire request body and parses it into dst. Read and
// parse failures are client errors.
func decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindBadRequest, "read request body", err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperr.Wrap(apperr.KindBadRequest, "parse request body", err)
	}
	return nil
}

// missing builds the error for a required field absent from the request.
func missing(field string) error {
	return apperr.BadRequestf("missing field %q", field)
}

// respondJSON writes v as a 200 JSON response.
func respondJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		respondError(w, apperr.Wrap(apperr.KindInternal, "marshal response", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// respondOK writes the {"status":200,"description":"OK"} envelope.
func respondOK(w http.ResponseWriter) {
	respondJSON(w, statusBody{Status: http.StatusOK, Description: "OK"})
}

// respondError maps the error kind to a status code and writes the
// {status, description} envelope.
func respondError(w http.ResponseWriter, err error) {
	status := apperr.StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(statusBody{Status: status, Description: err.Error()})
}
