package handlers

import (
	"net/http"
	"strconv"

	"github.com/designloop/sprint-system/middleware"
	"github.com/designloop/sprint-system/models"
	"github.com/designloop/sprint-system/repositories"
	"github.com/designloop/sprint-system/services"
)

type SprintHandler struct {
	scheduler     *services.SchedulerService
	sprintService *services.SprintService
}

func NewSprintHandler(scheduler *services.SchedulerService, sprintService *services.SprintService) *SprintHandler {
	return &SprintHandler{
		scheduler:     scheduler,
		sprintService: sprintService,
	}
}

func (h *SprintHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateSprintInput

	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	sprint, err := h.scheduler.CreateSprint(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"sprint": sprint}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SprintHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ListSprintsFilter{}

	if status := r.URL.Query().Get("status"); status != "" {
		s := models.SprintStatus(status)
		filter.Status = &s
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	sprints, err := h.sprintService.ListSprints(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"sprints": sprints}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SprintHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sprintID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	sprint, err := h.sprintService.GetSprint(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"sprint": sprint}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SprintHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sprintID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	sprint, err := h.sprintService.Activate(r.Context(), id, actorID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"sprint": sprint}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SprintHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sprintID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	sprint, err := h.sprintService.AdvancePhase(r.Context(), id, &actorID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"sprint": sprint}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SprintHandler) Extend(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sprintID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Days int `json:"days"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	sprint, err := h.sprintService.Extend(r.Context(), id, input.Days)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"sprint": sprint}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SprintHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sprintID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	sprint, err := h.sprintService.Cancel(r.Context(), id, actorID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"sprint": sprint}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
