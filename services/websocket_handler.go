package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	ws "github.com/foloup/backend/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	links     *LinkService
	sessions  *CallSessionService
	processor *CallProcessor
	hub       *ws.Hub
	upgrader  websocket.Upgrader
}

func NewWebSocketHandler(links *LinkService, sessions *CallSessionService, processor *CallProcessor, hub *ws.Hub, upgrader websocket.Upgrader) *WebSocketHandler {
	h := &WebSocketHandler{
		links:     links,
		sessions:  sessions,
		processor: processor,
		hub:       hub,
		upgrader:  upgrader,
	}
	sessions.OnConclude = h.notifyConcluded
	return h
}

// ServeInterview validates the link, upgrades the connection and starts the call
func (h *WebSocketHandler) ServeInterview(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.links.Resolve(r.Context(), chi.URLParam(r, "uniqueLinkId"))
	if err != nil {
		writeLinkError(w, err)
		return
	}

	ctx := context.Background()
	response, err := h.sessions.StartCall(ctx, resolved)
	if err != nil {
		if errors.Is(err, ErrLinkInUse) {
			writeLinkError(w, err)
			return
		}
		slog.Error("Failed to start call", "error", err, "link_id", resolved.Link.ID)
		writeError(w, http.StatusInternalServerError, "Failed to start interview", "")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err, "call_id", response.CallID)
		if err := h.sessions.AbandonCall(ctx, response.CallID); err != nil {
			slog.Error("Failed to abandon call", "error", err, "call_id", response.CallID)
		}
		return
	}

	client := h.hub.RegisterClient(conn, response.CallID, resolved.Interview.ID)
	client.MessageHandler = h.HandleWebSocketMessage
	client.OnClose = func(c *ws.Client) {
		h.processor.conclude(context.Background(), c, "Candidate disconnected")
	}

	slog.Info("WebSocket connection established", "call_id", response.CallID, "interview_id", resolved.Interview.ID)

	go client.WritePump()
	h.processor.StartInterview(ctx, client, resolved.Interview, response.Name)
	go client.ReadPump()
}

// HandleWebSocketMessage routes a candidate message of a live call
func (h *WebSocketHandler) HandleWebSocketMessage(client *ws.Client, messageBytes []byte) {
	var msg ws.Message
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		slog.Error("Failed to unmarshal WebSocket message", "error", err, "call_id", client.CallID)
		client.SendMessage(ws.MessageError, "Invalid message format")
		return
	}

	ctx := context.Background()
	switch msg.Type {
	case ws.MessageText:
		h.processor.ProcessTextMessage(ctx, client, msg.Content)
	case ws.MessageEndSession:
		slog.Info("Received end_session request", "call_id", client.CallID)
		h.processor.EndInterview(ctx, client)
	default:
		slog.Warn("Unknown message type", "type", msg.Type, "call_id", client.CallID)
	}
}

// notifyConcluded tells a still-connected candidate the call is over and closes it
func (h *WebSocketHandler) notifyConcluded(callID, reason string) {
	client, ok := h.hub.Get(callID)
	if !ok {
		return
	}
	client.SendMessage(ws.MessageEndSession, reason)
	client.Close()
}
