package services

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type LinkEndpoints struct {
	links *LinkService
}

func NewLinkEndpoints(links *LinkService) *LinkEndpoints {
	return &LinkEndpoints{links: links}
}

func (e *LinkEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/candidate-links", func(r chi.Router) {
		r.Post("/", e.CreateLinkHandler)
		r.Get("/", e.ListLinksHandler)
		r.Delete("/", e.DeleteLinkHandler)
	})
}

// RegisterPublicRoutes mounts the candidate-facing routes, authorised by the link token
func (e *LinkEndpoints) RegisterPublicRoutes(r chi.Router, sockets *WebSocketHandler) {
	r.Route("/public/interview/{uniqueLinkId}", func(r chi.Router) {
		r.Get("/", e.ResolveLinkHandler)
		if sockets != nil {
			r.Get("/ws", sockets.ServeInterview)
		}
	})
}

func (e *LinkEndpoints) CreateLinkHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	var req CreateLinkInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	link, err := e.links.CreateLink(r.Context(), user.OrganizationID, user.ID, req)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "Candidate or interview not found", err.Error())
		return
	case errors.Is(err, ErrExpiryInPast), errors.Is(err, ErrLinkFields):
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	default:
		slog.Error("Failed to create candidate link", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Failed to create candidate interview link", "")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"link": link})
}

func (e *LinkEndpoints) ListLinksHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	candidateID := r.URL.Query().Get("candidate_id")
	interviewID := r.URL.Query().Get("interview_id")

	var err error
	var links any
	switch {
	case candidateID != "":
		links, err = e.links.ListByCandidate(r.Context(), user.OrganizationID, candidateID)
	case interviewID != "":
		links, err = e.links.ListByInterview(r.Context(), user.OrganizationID, interviewID)
	default:
		writeError(w, http.StatusBadRequest, "candidate_id or interview_id is required", "")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch candidate interview links", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"links": links})
}

func (e *LinkEndpoints) DeleteLinkHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Link ID is required", "")
		return
	}

	if err := e.links.DeleteLink(r.Context(), user.OrganizationID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "Link not found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete candidate interview link", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (e *LinkEndpoints) ResolveLinkHandler(w http.ResponseWriter, r *http.Request) {
	resolved, err := e.links.Resolve(r.Context(), chi.URLParam(r, "uniqueLinkId"))
	if err != nil {
		writeLinkError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

func writeLinkError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrLinkNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "")
	case errors.Is(err, ErrLinkExpired), errors.Is(err, ErrLinkCompleted):
		writeError(w, http.StatusGone, err.Error(), "")
	case errors.Is(err, ErrLinkInUse):
		writeError(w, http.StatusConflict, err.Error(), "")
	case errors.Is(err, ErrInterviewInactive):
		writeError(w, http.StatusForbidden, err.Error(), "")
	default:
		slog.Error("Failed to resolve interview link", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load interview", "")
	}
}
