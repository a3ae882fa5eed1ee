package handlers

import (
	"net/http"

	"github.com/designloop/sprint-system/middleware"
	"github.com/designloop/sprint-system/services"
)

type VoteHandler struct {
	voteService *services.VoteService
}

func NewVoteHandler(voteService *services.VoteService) *VoteHandler {
	return &VoteHandler{voteService: voteService}
}

// Cast upserts the caller's vote. A brand-new vote answers 201, an updated
// one answers 200.
func (h *VoteHandler) Cast(w http.ResponseWriter, r *http.Request) {
	submissionID, err := idParam(r, "submissionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	voterID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input services.CastVoteInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	vote, created, err := h.voteService.CastVote(r.Context(), submissionID, voterID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	if err := writeJSON(w, status, jsonResponse{"vote": vote}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *VoteHandler) Stats(w http.ResponseWriter, r *http.Request) {
	submissionID, err := idParam(r, "submissionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	stats, err := h.voteService.ComputeStats(r.Context(), submissionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"stats": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *VoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	voteID, err := idParam(r, "voteID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	voterID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	if err := h.voteService.RemoveVote(r.Context(), voteID, voterID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
