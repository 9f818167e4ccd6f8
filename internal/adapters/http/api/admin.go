// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/rparrett/jornet/internal/domain/model"
	"github.com/rparrett/jornet/internal/domain/policy"
)

// AdminDependencies defines the interface for leaderboard administration.
type AdminDependencies interface {
	CreateLeaderboard(ctx context.Context, name string, ordering policy.Ordering, updatePolicy policy.UpdatePolicy) (model.Leaderboard, error)
	Leaderboards(ctx context.Context) ([]model.Leaderboard, error)
	RotateLeaderboardKey(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	RenameLeaderboard(ctx context.Context, id uuid.UUID, name string) error
	DeleteLeaderboard(ctx context.Context, id uuid.UUID) error
}

// AdminHandler handles leaderboard administration. Every request must carry
// the configured bearer token; an empty configured token disables the
// endpoints entirely.
type AdminHandler struct {
	deps  AdminDependencies
	token string
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies, token string) *AdminHandler {
	return &AdminHandler{deps: deps, token: token}
}

func (h *AdminHandler) authorized(r *http.Request) bool {
	if h.token == "" {
		return false
	}
	supplied, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(h.token)) == 1
}

// leaderboardInput mirrors the OpenAPI schema for POST /api/v1/leaderboards.
// Blank ordering and update_policy fall back to their defaults.
type leaderboardInput struct {
	Name         string `json:"name"`
	Ordering     string `json:"ordering,omitempty"`
	UpdatePolicy string `json:"update_policy,omitempty"`
}

type leaderboardResponse struct {
	ID           uuid.UUID `json:"id"`
	Key          uuid.UUID `json:"key"`
	Name         string    `json:"name"`
	Ordering     string    `json:"ordering"`
	UpdatePolicy string    `json:"update_policy"`
	CreatedAt    time.Time `json:"created_at"`
}

type rotateResponse struct {
	Key uuid.UUID `json:"key"`
}

func toLeaderboardResponse(b model.Leaderboard) leaderboardResponse {
	return leaderboardResponse{
		ID:           b.ID,
		Key:          b.Secret,
		Name:         b.Name,
		Ordering:     string(b.Ordering),
		UpdatePolicy: string(b.UpdatePolicy),
		CreatedAt:    b.CreatedAt,
	}
}

// HandleCreate handles POST /api/v1/leaderboards requests.
func (h *AdminHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
		return
	}
	var in leaderboardInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	board, err := h.deps.CreateLeaderboard(r.Context(), in.Name,
		policy.Ordering(in.Ordering), policy.UpdatePolicy(in.UpdatePolicy))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaderboardResponse(board))
}

// HandleList handles GET /api/v1/leaderboards requests.
func (h *AdminHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
		return
	}
	boards, err := h.deps.Leaderboards(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]leaderboardResponse, len(boards))
	for i, b := range boards {
		out[i] = toLeaderboardResponse(b)
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleRotate handles POST /api/v1/leaderboards/{id}/rotate requests.
func (h *AdminHandler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	key, err := h.deps.RotateLeaderboardKey(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rotateResponse{Key: key})
}

// HandleRename handles PATCH /api/v1/leaderboards/{id} requests.
func (h *AdminHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	var in leaderboardInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.deps.RenameLeaderboard(r.Context(), id, in.Name); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /api/v1/leaderboards/{id} requests.
func (h *AdminHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.deps.DeleteLeaderboard(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
