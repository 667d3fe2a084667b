package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sunbk201/appbundle/internal/intercept"
	"github.com/sunbk201/appbundle/internal/route"
	"github.com/sunbk201/appbundle/internal/session"
)

const maxCommandBody = 64 << 10

type ctxKey struct{}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError reports a refused command. A recursive rule is a well-formed
// request the table will not accept, hence 422.
func writeError(w http.ResponseWriter, err error) {
	kind := route.ErrorKind(err)
	if kind == "" {
		kind = "OperationFailed"
	}
	status := http.StatusBadRequest
	if errors.Is(err, route.ErrRecursiveRule) {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, errorBody{Error: kind, Message: err.Error()})
}

func (s *APIServer) sessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "NotFound", Message: "unknown session"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(ctxKey{}).(*session.Session)
}

func (s *APIServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": s.version,
	})
}

func (s *APIServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg)
}

func (s *APIServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		slog.Error("session create failed", slog.Any("error", err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
}

func (s *APIServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(sessionFrom(r).ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) handleExec(w http.ResponseWriter, r *http.Request) {
	var req intercept.Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCommandBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "OperationFailed", Message: "malformed command: " + err.Error()})
		return
	}
	cmd, err := req.Decode()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := sessionFrom(r).Exec(cmd); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *APIServer) handleNavigate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Navigate(r.URL.Query().Get("url")))
}

func (s *APIServer) handleResource(w http.ResponseWriter, r *http.Request) {
	res, ok := sessionFrom(r).Resource(r.URL.Query().Get("url"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "NotHandled", Message: "resource not handled"})
		return
	}
	defer res.Body.Close()

	contentType := res.MIMEType
	if res.Encoding != "" {
		contentType += "; charset=" + res.Encoding
	}
	w.Header().Set("Content-Type", contentType)
	if res.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(res.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, res.Body); err != nil {
		slog.Warn("resource stream aborted", slog.Any("error", err))
	}
}

func (s *APIServer) handleRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Rules())
}

// handleHits lists per-rule rewrite counts, busiest first.
func (s *APIServer) handleHits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.recorder.Hits.Snapshot())
}
