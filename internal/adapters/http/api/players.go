// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/rparrett/jornet/internal/domain/model"
)

// PlayerDependencies defines the interface for player provisioning.
type PlayerDependencies interface {
	CreatePlayer(ctx context.Context, name string) (model.Player, error)
}

// PlayersHandler handles player provisioning requests.
type PlayersHandler struct {
	deps PlayerDependencies
}

// NewPlayersHandler creates a new players handler.
func NewPlayersHandler(deps PlayerDependencies) *PlayersHandler {
	return &PlayersHandler{deps: deps}
}

// playerInput mirrors the OpenAPI schema for POST /api/v1/players. A blank
// name gets a generated one.
type playerInput struct {
	Name string `json:"name,omitempty"`
}

type playerResponse struct {
	ID   uuid.UUID `json:"id"`
	Key  uuid.UUID `json:"key"`
	Name string    `json:"name"`
}

// HandleCreatePlayer handles POST /api/v1/players requests.
func (h *PlayersHandler) HandleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var in playerInput
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
	}
	player, err := h.deps.CreatePlayer(r.Context(), in.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, playerResponse{
		ID:   player.ID,
		Key:  player.Key,
		Name: player.Name,
	})
}
