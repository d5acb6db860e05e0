package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/engine"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/monitor"
	"github.com/rishabhrd09/vitaltrack-sub000/internal/store"
)

// decodeBody reads a JSON request body into v. An empty body leaves v
// zero.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	err := json.NewDecoder(body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		fail(w, http.StatusRequestEntityTooLarge, ErrorDetail{Code: string(engine.ErrCodeValidation), Message: "request body too large"})
		return false
	}
	fail(w, http.StatusBadRequest, ErrorDetail{Code: string(engine.ErrCodeValidation), Message: "invalid json: " + err.Error()})
	return false
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	var req model.PushRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	start := time.Now()
	resp, err := s.engine.Push(r.Context(), AccountFrom(r.Context()), req)
	if err != nil {
		failErr(w, r, err)
		return
	}
	s.monitor.PushServed(time.Since(start), resp.SuccessCount, resp.ErrorCount)
	ok(w, resp)
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	var req model.PullRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	start := time.Now()
	resp, err := s.engine.Pull(r.Context(), AccountFrom(r.Context()), req)
	if err != nil {
		failErr(w, r, err)
		return
	}
	s.monitor.PullServed(time.Since(start))
	ok(w, resp)
}

func (s *Server) handleFull(w http.ResponseWriter, r *http.Request) {
	var req model.FullRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	start := time.Now()
	resp, err := s.engine.Full(r.Context(), AccountFrom(r.Context()), req)
	if err != nil {
		failErr(w, r, err)
		return
	}
	dur := time.Since(start)
	s.monitor.PushServed(dur, resp.SuccessCount, resp.ErrorCount)
	s.monitor.PullServed(dur)
	ok(w, resp)
}

// StatsResponse is the body of GET /v1/stats.
type StatsResponse struct {
	Account     string           `json:"account"`
	Counts      store.Stats      `json:"counts"`
	Latency     monitor.Snapshot `json:"latency"`
	Subscribers int              `json:"subscribers"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	account := AccountFrom(r.Context())
	counts, err := s.engine.Stats(r.Context(), account)
	if err != nil {
		failErr(w, r, err)
		return
	}
	resp := StatsResponse{Account: account, Counts: counts, Latency: s.monitor.Snapshot()}
	if s.hub != nil {
		resp.Subscribers = s.hub.Count(account)
	}
	ok(w, resp)
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.CORSOrigins,
	})
	if err != nil {
		// Accept has already written the HTTP error.
		return
	}
	account := AccountFrom(r.Context())
	logFeedClosed(r.Context(), account, s.hub.Serve(r.Context(), conn, account))
}

// logFeedClosed logs why a change feed ended. A client going away is
// logged at debug, anything else at warn.
func logFeedClosed(ctx context.Context, account string, err error) {
	if err == nil {
		return
	}
	level := slog.LevelWarn
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
		level = slog.LevelDebug
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
		websocket.CloseStatus(err) == websocket.StatusGoingAway:
		level = slog.LevelDebug
	}
	slog.Log(ctx, level, "change feed closed", "account", account, "error", err)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if s.hub != nil {
		resp["subscribers"] = s.hub.Total()
	}
	ok(w, resp)
}
