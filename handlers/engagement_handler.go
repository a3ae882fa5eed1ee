package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/designloop/sprint-system/middleware"
	"github.com/designloop/sprint-system/models"
	"github.com/designloop/sprint-system/services"
)

type EngagementHandler struct {
	engagement *services.EngagementService
	streaks    *services.StreakService
}

func NewEngagementHandler(engagement *services.EngagementService, streaks *services.StreakService) *EngagementHandler {
	return &EngagementHandler{engagement: engagement, streaks: streaks}
}

// RecordEvent appends an XP ledger entry for the authenticated user.
func (h *EngagementHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input struct {
		SprintID   int             `json:"sprint_id"`
		SourceType models.XPSource `json:"source_type"`
		Amount     int             `json:"amount"`
		SourceID   *int            `json:"source_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.engagement.RecordEvent(r.Context(), userID, input.SprintID, input.SourceType, input.Amount, input.SourceID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"xp_event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// XPSummary returns the recomputed totals for one user.
func (h *EngagementHandler) XPSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bySource, err := h.engagement.XPBySource(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	bySprint, err := h.engagement.XPBySprint(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	total := 0
	for _, amount := range bySource {
		total += amount
	}

	response := jsonResponse{
		"user_id":      userID,
		"total_xp":     total,
		"level":        services.LevelFor(total),
		"xp_by_source": bySource,
		"xp_by_sprint": bySprint,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EngagementHandler) Streaks(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.streaks.Streaks(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"streaks": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *EngagementHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var sprintID *int
	if raw := r.URL.Query().Get("sprint_id"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			badRequestResponse(w, r, errors.New("invalid sprint_id parameter"))
			return
		}
		sprintID = &parsed
	}

	entries, err := h.streaks.Leaderboard(r.Context(), limit, sprintID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
