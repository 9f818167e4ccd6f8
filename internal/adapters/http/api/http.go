// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/rparrett/jornet/internal/domain/model"
	"github.com/rparrett/jornet/internal/domain/policy"
	"github.com/rparrett/jornet/internal/gateway"
	"github.com/rparrett/jornet/internal/rankindex"
	"github.com/rparrett/jornet/internal/registry"
	"github.com/rparrett/jornet/internal/scorestore"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit runs a score through authentication, policy and indexing.
	Submit(ctx context.Context, sub model.Submission) (gateway.Result, error)

	// Read operations expose ranked leaderboard data.
	Top(ctx context.Context, boardID uuid.UUID, n int) ([]model.RankedEntry, error)
	Around(ctx context.Context, boardID, playerID uuid.UUID, window int) ([]model.RankedEntry, error)
	Rank(ctx context.Context, boardID, playerID uuid.UUID) (model.RankedEntry, error)
	History(ctx context.Context, boardID, playerID uuid.UUID) ([]model.ScoreEntry, error)

	// Player provisioning for signed submissions.
	CreatePlayer(ctx context.Context, name string) (model.Player, error)

	// Leaderboard administration.
	CreateLeaderboard(ctx context.Context, name string, ordering policy.Ordering, updatePolicy policy.UpdatePolicy) (model.Leaderboard, error)
	Leaderboards(ctx context.Context) ([]model.Leaderboard, error)
	RotateLeaderboardKey(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	RenameLeaderboard(ctx context.Context, id uuid.UUID, name string) error
	DeleteLeaderboard(ctx context.Context, id uuid.UUID) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	playersHandler *PlayersHandler
	scoresHandler  *ScoresHandler
	rankHandler    *RankHandler
	adminHandler   *AdminHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := newOptions(opts...)
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		playersHandler: NewPlayersHandler(deps),
		scoresHandler:  NewScoresHandler(deps, o.maxTopLimit, o.maxAroundWindow),
		rankHandler:    NewRankHandler(deps),
		adminHandler:   NewAdminHandler(deps, o.adminToken),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /api/v1/players", MetricsMiddleware(s.playersHandler.HandleCreatePlayer, "players"))

	mux.HandleFunc("POST /api/v1/scores/{board}", MetricsMiddleware(s.scoresHandler.HandleSubmit, "submit"))
	mux.HandleFunc("GET /api/v1/scores/{board}", MetricsMiddleware(s.scoresHandler.HandleTop, "top"))
	mux.HandleFunc("GET /api/v1/scores/{board}/around/{player}", MetricsMiddleware(s.scoresHandler.HandleAround, "around"))
	mux.HandleFunc("GET /api/v1/scores/{board}/history/{player}", MetricsMiddleware(s.scoresHandler.HandleHistory, "history"))
	mux.HandleFunc("GET /api/v1/rank/{board}/{player}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))

	mux.HandleFunc("POST /api/v1/leaderboards", MetricsMiddleware(s.adminHandler.HandleCreate, "admin_create"))
	mux.HandleFunc("GET /api/v1/leaderboards", MetricsMiddleware(s.adminHandler.HandleList, "admin_list"))
	mux.HandleFunc("POST /api/v1/leaderboards/{id}/rotate", MetricsMiddleware(s.adminHandler.HandleRotate, "admin_rotate"))
	mux.HandleFunc("PATCH /api/v1/leaderboards/{id}", MetricsMiddleware(s.adminHandler.HandleRename, "admin_rename"))
	mux.HandleFunc("DELETE /api/v1/leaderboards/{id}", MetricsMiddleware(s.adminHandler.HandleDelete, "admin_delete"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates upstream sentinel errors to an HTTP status and
// machine-readable code.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrAuthenticationFailed):
		writeError(w, http.StatusUnauthorized, "authentication_failed", err)
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, "leaderboard_not_found", err)
	case errors.Is(err, registry.ErrPlayerNotFound):
		writeError(w, http.StatusNotFound, "player_not_found", err)
	case errors.Is(err, rankindex.ErrNotRanked):
		writeError(w, http.StatusNotFound, "not_ranked", err)
	case errors.Is(err, scorestore.ErrNoEntry):
		writeError(w, http.StatusNotFound, "no_entry", err)
	case errors.Is(err, gateway.ErrMalformedSubmission):
		writeError(w, http.StatusBadRequest, "malformed_submission", err)
	case errors.Is(err, rankindex.ErrInvalidLimit),
		errors.Is(err, rankindex.ErrInvalidWindow),
		errors.Is(err, registry.ErrInvalidOrdering),
		errors.Is(err, registry.ErrInvalidUpdatePolicy),
		errors.Is(err, registry.ErrEmptyName):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, gateway.ErrSubmissionFailed),
		errors.Is(err, scorestore.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, statusClientClosedRequest, "request_cancelled", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// Nginx convention for a client that went away before the response.
const statusClientClosedRequest = 499

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, ErrBadRequest
	}
	return id, nil
}
