// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package spotify

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FaelSemW/LovePingServer/internal/platform/apperr"
	"github.com/FaelSemW/LovePingServer/internal/platform/ctxutil"
	"github.com/FaelSemW/LovePingServer/internal/platform/middleware"
	"github.com/FaelSemW/LovePingServer/internal/platform/respond"
	"github.com/FaelSemW/LovePingServer/internal/platform/sec"
	"github.com/FaelSemW/LovePingServer/internal/platform/validate"
)

// Handler implements the Spotify link HTTP surface.
//
// The authenticated routes live under /api/v1/spotify; the OAuth
// callback is mounted separately because the provider redirect carries
// no session credential. The callback authenticates through the CSRF
// state, which [connect] bound to the caller's user id.
type Handler struct {
	client  *Client
	manager *Manager
	states  StateRepository
	poller  *Poller
}

// NewHandler constructs a new [Handler] with its dependencies.
func NewHandler(client *Client, manager *Manager, states StateRepository, poller *Poller) *Handler {
	return &Handler{client: client, manager: manager, states: states, poller: poller}
}

// Routes returns a [chi.Router] configured with Spotify routes.
//
// # Endpoints
//   - GET    /connect  : Redirects to the provider's consent page.
//   - GET    /callback : Provider redirect target (state-authenticated).
//   - GET    /         : Reports whether the caller's account is linked.
//   - DELETE /         : Removes the caller's link.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// The provider redirect carries no session credential; the CSRF
	// state issued by connect authenticates it instead.
	router.Get("/callback", handler.callback)

	router.Group(func(authed chi.Router) {
		authed.Use(middleware.RequireAuth)
		authed.Get("/connect", handler.connect)
		authed.Get("/", handler.status)
		authed.Delete("/", handler.unlink)
	})

	return router
}

// connect handles GET /api/v1/spotify/connect requests.
//
// Issues a single-use CSRF state bound to the caller and redirects to
// the provider's authorization page.
func (handler *Handler) connect(writer http.ResponseWriter, request *http.Request) {
	claims := ctxutil.GetAuthUser(request.Context())

	if !handler.client.Configured() {
		respond.Error(writer, request, apperr.ServiceUnavailable("Spotify integration is not configured"))
		return
	}

	state, err := sec.GenerateSecureToken(24)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if err := handler.states.Set(request.Context(), state, claims.UserID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	http.Redirect(writer, request, handler.client.AuthorizeURL(state), http.StatusFound)
}

// callback handles GET /api/v1/spotify/callback requests.
//
// # Returns
//   - Writes HTTP 200 OK with {"linked": true} on a successful exchange.
//   - Writes HTTP 400 Bad Request when the state is unknown, expired,
//     or the provider reported a consent error.
func (handler *Handler) callback(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()

	// ── 1. Provider Error Check ───────────────────────────────────────────

	if providerErr := query.Get("error"); providerErr != "" {
		respond.Error(writer, request, apperr.ValidationError("Authorization was declined: "+providerErr))
		return
	}

	// ── 2. State Consumption ──────────────────────────────────────────────

	state := query.Get("state")
	if state == "" {
		respond.Error(writer, request, validate.RequiredError("state", "is required"))
		return
	}
	userID, err := handler.states.Consume(request.Context(), state)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// ── 3. Code Exchange ──────────────────────────────────────────────────

	code := query.Get("code")
	if code == "" {
		respond.Error(writer, request, validate.RequiredError("code", "is required"))
		return
	}
	if err := handler.manager.Link(request.Context(), userID, code); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// A user who linked while already connected starts polling now
	// instead of on their next websocket session.
	handler.poller.Start(context.WithoutCancel(request.Context()), userID)

	respond.OK(writer, map[string]any{
		"linked": true,
	})
}

// status handles GET /api/v1/spotify requests.
func (handler *Handler) status(writer http.ResponseWriter, request *http.Request) {
	claims := ctxutil.GetAuthUser(request.Context())

	linked, err := handler.manager.Linked(request.Context(), claims.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"linked": linked,
	})
}

// unlink handles DELETE /api/v1/spotify requests.
func (handler *Handler) unlink(writer http.ResponseWriter, request *http.Request) {
	claims := ctxutil.GetAuthUser(request.Context())

	if err := handler.manager.Unlink(request.Context(), claims.UserID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	handler.poller.Stop(claims.UserID)

	respond.NoContent(writer)
}
