package handlers

import (
	"net/http"

	"github.com/designloop/sprint-system/services"
)

type ChallengeHandler struct {
	challengeService *services.ChallengeService
}

func NewChallengeHandler(challengeService *services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{challengeService: challengeService}
}

func (h *ChallengeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.ChallengeInput

	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	challenge, err := h.challengeService.CreateChallenge(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChallengeHandler) List(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.challengeService.ListChallenges(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenges": challenges}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChallengeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "challengeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	challenge, err := h.challengeService.GetChallenge(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChallengeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "challengeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.ChallengeInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	challenge, err := h.challengeService.UpdateChallenge(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"challenge": challenge}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ChallengeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "challengeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.challengeService.DeleteChallenge(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
