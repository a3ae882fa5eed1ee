package handlers

import (
	"log/slog"
	"net/http"

	"github.com/designloop/sprint-system/live"
	"github.com/designloop/sprint-system/services"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict Origin to the frontend domains before exposing
		// this endpoint publicly.
		return true
	},
}

type WebSocketHandler struct {
	hub           *live.Hub
	sprintService *services.SprintService
}

func NewWebSocketHandler(hub *live.Hub, sprintService *services.SprintService) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, sprintService: sprintService}
}

// ServeWs subscribes a client to live updates for one sprint. Clients connect
// to /ws/sprints/{sprintID}.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	sprintID, err := idParam(r, "sprintID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	sprint, err := h.sprintService.GetSprint(r.Context(), sprintID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error to the client.
		slog.Error("failed to upgrade websocket connection", slog.Int("sprint_id", sprint.ID), slog.Any("error", err))
		return
	}

	roomID := live.SprintRoom(sprint.ID)
	client := live.NewClient(h.hub, conn, roomID)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
