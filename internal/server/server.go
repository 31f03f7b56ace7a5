// Package server exposes a Session over HTTP for review: the current document, the history, diffs between history states, undo/redo, and content edits.
// Connected websocket clients receive every session Event as JSON.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/codalotl/blockdiff/internal/docdiff"
	"github.com/codalotl/blockdiff/internal/document"
	"github.com/codalotl/blockdiff/internal/history"
	"github.com/codalotl/blockdiff/internal/session"
	"github.com/codalotl/blockdiff/internal/simplelogger"
	"github.com/gorilla/mux"
)

// Options configure a Server.
type Options struct {
	// OnChange, if set, is called after every successful mutation (ex: to persist the session). An error is reported to the client as a 500, but the mutation
	// stands.
	OnChange func(*session.Session) error

	Report docdiff.ReportOptions // used for /api/diff?format=text
}

// Server serves one Session.
type Server struct {
	sess   *session.Session
	opts   Options
	router *mux.Router
	hub    *hub
}

// New returns a Server for sess. It subscribes to sess immediately; call Close to release the subscription.
func New(sess *session.Session, opts Options) *Server {
	s := &Server{sess: sess, opts: opts, hub: newHub(sess)}

	r := mux.NewRouter()
	r.HandleFunc("/ws", s.hub.serveWS)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/document", s.getDocument).Methods(http.MethodGet)
	api.HandleFunc("/history", s.getHistory).Methods(http.MethodGet)
	api.HandleFunc("/history/undo", s.undo).Methods(http.MethodPost)
	api.HandleFunc("/history/redo", s.redo).Methods(http.MethodPost)
	api.HandleFunc("/diff", s.getDiff).Methods(http.MethodGet)
	api.HandleFunc("/blocks/{id}/content", s.putContent).Methods(http.MethodPut)
	s.router = r
	return s
}

// Handler returns the HTTP handler, wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.router)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		simplelogger.Log("server: listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if e := <-errc; !errors.Is(e, http.ErrServerClosed) && err == nil {
		err = e
	}
	simplelogger.Log("server: stopped")
	return err
}

// Close disconnects websocket clients and cancels the session subscription.
func (s *Server) Close() error {
	s.hub.close()
	return nil
}

type historyResponse struct {
	history.State
	CanUndo bool `json:"can_undo"`
	CanRedo bool `json:"can_redo"`
}

type moveResponse struct {
	OK      bool            `json:"ok"`
	Index   int             `json:"index"`
	History historyResponse `json:"history"`
}

type contentRequest struct {
	Content *string `json:"content"`
}

type entryResponse struct {
	OK    bool          `json:"ok"`
	Entry history.Entry `json:"entry"`
}

func (s *Server) historyResponse() historyResponse {
	st := s.sess.History()
	return historyResponse{State: st, CanUndo: st.CanUndo(), CanRedo: st.CanRedo()}
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Document())
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.historyResponse())
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	s.move(w, s.sess.Undo)
}

func (s *Server) redo(w http.ResponseWriter, r *http.Request) {
	s.move(w, s.sess.Redo)
}

func (s *Server) move(w http.ResponseWriter, fn func() (history.Target, error)) {
	t, err := fn()
	if errors.Is(err, session.ErrNothingToUndo) || errors.Is(err, session.ErrNothingToRedo) {
		writeJSON(w, http.StatusConflict, errorResponse{OK: false, Error: err.Error()})
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !s.changed(w) {
		return
	}
	writeJSON(w, http.StatusOK, moveResponse{OK: true, Index: t.Index, History: s.historyResponse()})
}

// getDiff serves the diff between two history indexes. from defaults to -1 (pristine) and to defaults to the current index. format=text renders the report.
func (s *Server) getDiff(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := intParam(q.Get("from"), -1)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("from: %w", err))
		return
	}
	to, err := intParam(q.Get("to"), s.sess.History().CurrentIndex)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("to: %w", err))
		return
	}

	d, err := s.sess.Diff(from, to)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch q.Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, d)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(docdiff.RenderReport(d, s.opts.Report)))
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown format %q", q.Get("format")))
	}
}

func (s *Server) putContent(w http.ResponseWriter, r *http.Request) {
	id := document.BlockID(mux.Vars(r)["id"])

	var req contentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if req.Content == nil {
		writeError(w, http.StatusBadRequest, errors.New("content is required"))
		return
	}

	e, err := s.sess.Apply("", session.SetContent(id, *req.Content))
	if errors.Is(err, document.ErrInvalidReference) {
		writeError(w, http.StatusNotFound, err)
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !s.changed(w) {
		return
	}
	writeJSON(w, http.StatusOK, entryResponse{OK: true, Entry: e})
}

// changed runs OnChange. It writes a 500 and returns false if OnChange fails.
func (s *Server) changed(w http.ResponseWriter) bool {
	if s.opts.OnChange == nil {
		return true
	}
	if err := s.opts.OnChange(s.sess); err != nil {
		simplelogger.Log("server: on change: %v", err)
		writeError(w, http.StatusInternalServerError, err)
		return false
	}
	return true
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResponse{OK: false, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		simplelogger.Log("server: encode response: %v", err)
	}
}

// corsMiddleware answers preflight requests before mux's method matching can reject them with a 405.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Add("Vary", "Origin")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
