package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	localErrs "github.com/adwski/counterd/internal/errors"
	"github.com/adwski/counterd/internal/logger"
	"github.com/adwski/counterd/internal/xcontext"

	"github.com/google/uuid"
)

type (
	countResponse struct {
		Count uint64 `json:"count"`
	}

	errorResponse struct {
		Error string `json:"error"`
	}

	statsResponse struct {
		Increments uint64 `json:"increments"`
		Reads      uint64 `json:"reads"`
		Waiting    int64  `json:"waiting"`
		Congested  bool   `json:"congested"`
	}
)

// withRequestID tags request with an id, a valid inbound uuid is kept.
func (g *Gateway) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(xcontext.WithRequestID(r.Context(), id)))
	})
}

func (g *Gateway) requestLogger(ctx context.Context) logger.Logger {
	return g.logger.With("request_id", xcontext.GetRequestID(ctx))
}

func (g *Gateway) up(w http.ResponseWriter, r *http.Request) {
	log := g.requestLogger(r.Context())

	// GET pattern also matches HEAD, which must not change the counter
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, log, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	log.Debug("count up")

	ctx, cancel := g.requestContext(r.Context())
	defer cancel()

	g.enter()
	err := g.counter.Increment(ctx)
	g.leave()

	if err != nil {
		g.fail(w, r, log, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (g *Gateway) get(w http.ResponseWriter, r *http.Request) {
	log := g.requestLogger(r.Context())

	ctx, cancel := g.requestContext(r.Context())
	defer cancel()

	g.enter()
	count, err := g.counter.Value(ctx)
	g.leave()

	if err != nil {
		g.fail(w, r, log, err)
		return
	}
	log.Debug("get count", "count", count)

	writeJSON(w, log, http.StatusOK, countResponse{Count: count})
}

func (g *Gateway) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, g.requestLogger(r.Context()), http.StatusOK, statsResponse{
		Increments: g.eventStats.Increments(),
		Reads:      g.eventStats.Reads(),
		Waiting:    g.waiting.Get(),
		Congested:  g.congested.Get(),
	})
}

// fail maps rendezvous error to http status.
func (g *Gateway) fail(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	switch {
	case r.Context().Err() != nil:
		log.Debug("client went away", "error", err)
	case errors.Is(err, localErrs.ChannelBrokenError{}):
		log.Error("counter is unavailable", "error", err)
		writeJSON(w, log, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		log.Error("counter request timed out", "error", err)
		writeJSON(w, log, http.StatusGatewayTimeout, errorResponse{Error: err.Error()})
	default:
		log.Error("counter request failed", "error", err)
		writeJSON(w, log, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, log logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("json encoder error", "error", err)
	}
}
