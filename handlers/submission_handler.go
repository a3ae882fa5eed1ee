package handlers

import (
	"errors"
	"net/http"

	"github.com/designloop/sprint-system/middleware"
	"github.com/designloop/sprint-system/services"
)

type SubmissionHandler struct {
	submissionService *services.SubmissionService
}

func NewSubmissionHandler(submissionService *services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sprintID, err := idParam(r, "sprintID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input services.CreateSubmissionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	submission, err := h.submissionService.CreateDraft(r.Context(), sprintID, userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"submission": submission}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SubmissionHandler) ListBySprint(w http.ResponseWriter, r *http.Request) {
	sprintID, err := idParam(r, "sprintID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	submissions, err := h.submissionService.ListBySprint(r.Context(), sprintID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"submissions": submissions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "submissionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	submission, err := h.submissionService.GetSubmission(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"submission": submission}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SubmissionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "submissionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input services.UpdateSubmissionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	submission, err := h.submissionService.UpdateDraft(r.Context(), id, userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"submission": submission}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "submissionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	submission, err := h.submissionService.Submit(r.Context(), id, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"submission": submission}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SubmissionHandler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "submissionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	file, header, err := r.FormFile("asset")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		badRequestResponse(w, r, errors.New("content type required"))
		return
	}

	submission, err := h.submissionService.UploadAsset(r.Context(), id, userID, header.Filename, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"submission": submission}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
