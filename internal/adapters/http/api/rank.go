// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/rparrett/jornet/internal/domain/model"
)

// RankDependencies defines the interface for rank lookups.
type RankDependencies interface {
	Rank(ctx context.Context, boardID, playerID uuid.UUID) (model.RankedEntry, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /api/v1/rank/{board}/{player} requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
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
	entry, err := h.deps.Rank(r.Context(), boardID, playerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRankedEntries([]model.RankedEntry{entry})[0])
}
