// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package pairing

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FaelSemW/LovePingServer/internal/auth"
	"github.com/FaelSemW/LovePingServer/internal/platform/apperr"
	"github.com/FaelSemW/LovePingServer/internal/platform/ctxutil"
	"github.com/FaelSemW/LovePingServer/internal/platform/respond"
	"github.com/FaelSemW/LovePingServer/internal/platform/validate"
)

// UserFinder resolves usernames to accounts for pairing requests.
// Satisfied by [auth.PostgresUserRepository].
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (*auth.User, error)
	FindByID(ctx context.Context, id string) (*auth.User, error)
}

// Handler implements the pairing-initiation HTTP surface.
//
// All routes require authentication; the router mounts this handler
// behind [middleware.RequireAuth].
type Handler struct {
	service *Service
	users   UserFinder
}

// NewHandler constructs a new [Handler] with its dependencies.
func NewHandler(service *Service, users UserFinder) *Handler {
	return &Handler{service: service, users: users}
}

// Routes returns a [chi.Router] configured with pairing routes.
//
// # Endpoints
//   - GET    / : Returns the current partner, if any.
//   - POST   / : Pairs the caller with another user by username.
//   - DELETE / : Dissolves the caller's pairing.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.current)
	router.Post("/", handler.pair)
	router.Delete("/", handler.unpair)

	return router
}

// pairRequest represents the JSON payload for a pairing action.
type pairRequest struct {
	PartnerUsername string `json:"partner_username"`
}

// pair handles POST /api/v1/pairing requests.
//
// # Returns
//   - Writes HTTP 201 Created with the partner profile on success.
//   - Writes HTTP 404 Not Found when the username does not exist.
//   - Writes HTTP 409 Conflict (ALREADY_PAIRED) when either side is taken.
func (handler *Handler) pair(writer http.ResponseWriter, request *http.Request) {
	claims := ctxutil.GetAuthUser(request.Context())

	// ── 1. Payload Extraction ─────────────────────────────────────────────

	var input pairRequest
	if err := json.NewDecoder(request.Body).Decode(&input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}
	if input.PartnerUsername == "" {
		respond.Error(writer, request, validate.RequiredError("partner_username", "is required"))
		return
	}

	// ── 2. Partner Resolution ─────────────────────────────────────────────

	partner, err := handler.users.FindByUsername(request.Context(), auth.NormalizeUsername(input.PartnerUsername))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 3. Application Execution ──────────────────────────────────────────

	if err := handler.service.Pair(request.Context(), claims.UserID, partner.ID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 4. Presentation Output ────────────────────────────────────────────

	respond.Created(writer, map[string]any{
		"partner": partner,
	})
}

// unpair handles DELETE /api/v1/pairing requests.
func (handler *Handler) unpair(writer http.ResponseWriter, request *http.Request) {
	claims := ctxutil.GetAuthUser(request.Context())

	if err := handler.service.Unpair(request.Context(), claims.UserID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// current handles GET /api/v1/pairing requests.
func (handler *Handler) current(writer http.ResponseWriter, request *http.Request) {
	claims := ctxutil.GetAuthUser(request.Context())

	partnerID, paired := handler.service.PartnerOf(claims.UserID)
	if !paired {
		respond.Error(writer, request, apperr.NotPaired("You have no partner"))
		return
	}

	partner, err := handler.users.FindByID(request.Context(), partnerID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"partner": partner,
	})
}
