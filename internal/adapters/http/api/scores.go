// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/rparrett/jornet/internal/domain/model"
	"github.com/rparrett/jornet/internal/gateway"
)

// ScoreDependencies defines the interface for score submission and queries.
type ScoreDependencies interface {
	Submit(ctx context.Context, sub model.Submission) (gateway.Result, error)
	Top(ctx context.Context, boardID uuid.UUID, n int) ([]model.RankedEntry, error)
	Around(ctx context.Context, boardID, playerID uuid.UUID, window int) ([]model.RankedEntry, error)
	History(ctx context.Context, boardID, playerID uuid.UUID) ([]model.ScoreEntry, error)
}

// ScoresHandler handles score submissions and leaderboard reads.
type ScoresHandler struct {
	deps            ScoreDependencies
	maxTopLimit     int
	maxAroundWindow int
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoreDependencies, maxTopLimit, maxAroundWindow int) *ScoresHandler {
	return &ScoresHandler{
		deps:            deps,
		maxTopLimit:     maxTopLimit,
		maxAroundWindow: maxAroundWindow,
	}
}

// scoreInput mirrors the OpenAPI schema for POST /api/v1/scores/{board}.
// Timestamp is unix seconds; zero means "now". Exactly one of K (HMAC by
// the player key) or Key (the board secret) authenticates.
type scoreInput struct {
	Score      float64   `json:"score"`
	Player     uuid.UUID `json:"player"`
	PlayerName string    `json:"player_name,omitempty"`
	Meta       string    `json:"meta,omitempty"`
	Timestamp  int64     `json:"timestamp,omitempty"`
	K          string    `json:"k,omitempty"`
	Key        string    `json:"key,omitempty"`
}

// scoreEntry is the read shape for a stored score.
type scoreEntry struct {
	Player     uuid.UUID `json:"player"`
	PlayerName string    `json:"player_name"`
	Score      float64   `json:"score"`
	Timestamp  time.Time `json:"timestamp"`
	Meta       string    `json:"meta,omitempty"`
}

// rankedEntry is scoreEntry annotated with its 1-indexed rank.
type rankedEntry struct {
	Rank int `json:"rank"`
	scoreEntry
}

type submitResponse struct {
	Entry     scoreEntry `json:"entry"`
	Rank      int        `json:"rank,omitempty"`
	Changed   bool       `json:"changed"`
	Duplicate bool       `json:"duplicate"`
}

func toScoreEntry(e model.ScoreEntry) scoreEntry {
	return scoreEntry{
		Player:     e.PlayerID,
		PlayerName: e.PlayerName,
		Score:      e.Value,
		Timestamp:  e.Timestamp,
		Meta:       e.Meta,
	}
}

func toRankedEntries(entries []model.RankedEntry) []rankedEntry {
	out := make([]rankedEntry, len(entries))
	for i, e := range entries {
		out[i] = rankedEntry{
			Rank: e.Rank,
			scoreEntry: scoreEntry{
				Player:     e.PlayerID,
				PlayerName: e.PlayerName,
				Score:      e.Value,
				Timestamp:  e.Timestamp,
				Meta:       e.Meta,
			},
		}
	}
	return out
}

// HandleSubmit handles POST /api/v1/scores/{board} requests.
func (h *ScoresHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	boardID, err := pathUUID(r, "board")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	var in scoreInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	sub := model.Submission{
		LeaderboardID: boardID,
		PlayerID:      in.Player,
		PlayerName:    in.PlayerName,
		Value:         in.Score,
		Meta:          in.Meta,
		Key:           in.Key,
		Signature:     in.K,
	}
	if in.Timestamp != 0 {
		sub.Timestamp = time.Unix(in.Timestamp, 0).UTC()
	}
	res, err := h.deps.Submit(r.Context(), sub)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Entry:     toScoreEntry(res.Entry),
		Rank:      res.Rank,
		Changed:   res.Changed,
		Duplicate: res.Duplicate,
	})
}

// HandleTop handles GET /api/v1/scores/{board}?limit=N requests.
func (h *ScoresHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	boardID, err := pathUUID(r, "board")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	n := defaultTopLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
	}
	if n > h.maxTopLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", ErrBadRequest)
		return
	}
	entries, err := h.deps.Top(r.Context(), boardID, n)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRankedEntries(entries))
}

// HandleAround handles GET /api/v1/scores/{board}/around/{player}?window=W.
func (h *ScoresHandler) HandleAround(w http.ResponseWriter, r *http.Request) {
	boardID, err := pathUUID(r, "board")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	playerID, err := pathUUID(r, "player")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	window := defaultAroundWindow
	if windowStr := r.URL.Query().Get("window"); windowStr != "" {
		window, err = strconv.Atoi(windowStr)
		if err != nil || window < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
	}
	if window > h.maxAroundWindow {
		writeError(w, http.StatusBadRequest, "window_exceeded", ErrBadRequest)
		return
	}
	entries, err := h.deps.Around(r.Context(), boardID, playerID, window)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRankedEntries(entries))
}

// HandleHistory handles GET /api/v1/scores/{board}/history/{player}.
func (h *ScoresHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	boardID, err := pathUUID(r, "board")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	playerID, err := pathUUID(r, "player")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	entries, err := h.deps.History(r.Context(), boardID, playerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]scoreEntry, len(entries))
	for i, e := range entries {
		out[i] = toScoreEntry(e)
	}
	writeJSON(w, http.StatusOK, out)
}

const (
	defaultTopLimit     = 10
	defaultAroundWindow = 5
)
