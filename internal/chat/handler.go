// Package chat exposes the conversation engine over HTTP and WebSocket for
// the web widget. Each session is processed strictly sequentially: one
// utterance is fully resolved before the next is accepted.
package chat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/google/uuid"
	"github.com/smiledental/reception-agent/internal/conversation"
	"github.com/smiledental/reception-agent/pkg/logging"
)

// Handler manages chat sessions and their transports.
type Handler struct {
	engine     *conversation.Engine
	states     conversation.StateStore
	transcript *conversation.TranscriptStore
	logger     *logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewHandler wires the chat surface. transcript may be nil, which disables
// long-term history.
func NewHandler(engine *conversation.Engine, states conversation.StateStore, transcript *conversation.TranscriptStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		engine:     engine,
		states:     states,
		transcript: transcript,
		logger:     logger,
		locks:      make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the per-session mutex, creating it on first use. The
// lock is what serializes turns within one session.
func (h *Handler) sessionLock(sessionID string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	if l, ok := h.locks[sessionID]; ok {
		return l
	}
	l := &sync.Mutex{}
	h.locks[sessionID] = l
	return l
}

func (h *Handler) dropSessionLock(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.locks, sessionID)
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

type messageResponse struct {
	Success   bool                `json:"success"`
	SessionID string              `json:"session_id,omitempty"`
	Response  string              `json:"response,omitempty"`
	State     *conversation.State `json:"state,omitempty"`
	Error     string              `json:"error,omitempty"`
	Ended     bool                `json:"ended,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HandleStartSession opens a fresh session and returns the greeting.
func (h *Handler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	sessionID := generateSessionID()
	ctx := r.Context()

	if err := h.states.Save(ctx, sessionID, conversation.NewState()); err != nil {
		h.logger.Error("chat: failed to create session", "error", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Success: false, Error: "could not start session"})
		return
	}

	greeting := h.engine.Greeting()
	h.recordTranscript(ctx, sessionID, "assistant", greeting)

	writeJSON(w, http.StatusOK, messageResponse{
		Success:   true,
		SessionID: sessionID,
		Response:  greeting,
	})
}

// HandleMessage processes one utterance over plain HTTP.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Success: false, Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeJSON(w, http.StatusBadRequest, messageResponse{Success: false, Error: "session_id is required"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, messageResponse{Success: false, Error: "message cannot be empty"})
		return
	}

	resp := h.processTurn(r.Context(), req.SessionID, req.Message)
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

// processTurn runs one utterance through the engine under the session lock.
func (h *Handler) processTurn(ctx context.Context, sessionID, message string) messageResponse {
	lock := h.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	st, err := h.states.Load(ctx, sessionID)
	if err != nil {
		h.logger.Error("chat: failed to load session", "session_id", sessionID, "error", err)
		return messageResponse{Success: false, Error: "could not load session"}
	}

	h.recordTranscript(ctx, sessionID, "user", message)

	if conversation.IsExitPhrase(message) {
		reply := h.engine.Farewell(st)
		h.recordTranscript(ctx, sessionID, "assistant", reply)
		h.endSession(ctx, sessionID)
		return messageResponse{Success: true, SessionID: sessionID, Response: reply, Ended: true}
	}

	reply := h.engine.Turn(ctx, st, message)
	h.recordTranscript(ctx, sessionID, "assistant", reply)

	if err := h.states.Save(ctx, sessionID, st); err != nil {
		h.logger.Error("chat: failed to persist session", "session_id", sessionID, "error", err)
		return messageResponse{Success: false, Error: "could not persist session"}
	}

	return messageResponse{Success: true, SessionID: sessionID, Response: reply, State: st}
}

// HandleReset clears the session's conversation state but keeps the session.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.SessionID) == "" {
		writeJSON(w, http.StatusBadRequest, messageResponse{Success: false, Error: "session_id is required"})
		return
	}

	lock := h.sessionLock(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	if err := h.states.Save(r.Context(), req.SessionID, conversation.NewState()); err != nil {
		h.logger.Error("chat: failed to reset session", "session_id", req.SessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Success: false, Error: "could not reset session"})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, SessionID: req.SessionID, Response: "Session reset successfully"})
}

// HandleEndSession tears the session down.
func (h *Handler) HandleEndSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.SessionID) == "" {
		writeJSON(w, http.StatusBadRequest, messageResponse{Success: false, Error: "session_id is required"})
		return
	}

	h.endSession(r.Context(), req.SessionID)
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Response: "Session ended"})
}

func (h *Handler) endSession(ctx context.Context, sessionID string) {
	if err := h.states.Delete(ctx, sessionID); err != nil {
		h.logger.Error("chat: failed to delete session state", "session_id", sessionID, "error", err)
	}
	if err := h.transcript.EndSession(ctx, sessionID); err != nil {
		h.logger.Error("chat: failed to close transcript", "session_id", sessionID, "error", err)
	}
	h.dropSessionLock(sessionID)
}

// HistoryMessage is one transcript entry in API responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// HandleHistory returns the stored transcript for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	msgs, err := h.transcript.Messages(r.Context(), sessionID, 100)
	if err != nil {
		h.logger.Error("chat: failed to load history", "session_id", sessionID, "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	history := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, HistoryMessage{
			Role:      m.Role,
			Text:      m.Content,
			Timestamp: m.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": history})
}

func (h *Handler) recordTranscript(ctx context.Context, sessionID, role, content string) {
	if err := h.transcript.AppendMessage(ctx, sessionID, role, content); err != nil {
		h.logger.Error("chat: failed to store transcript message", "session_id", sessionID, "error", err)
	}
}

// InboundMessage is what the widget sends over the socket.
type InboundMessage struct {
	Type      string `json:"type"` // "message", "ping"
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// OutboundMessage is what the socket sends to the widget.
type OutboundMessage struct {
	Type      string `json:"type"` // "session", "message", "pong", "error"
	Text      string `json:"text,omitempty"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Ended     bool   `json:"ended,omitempty"`
}

// HandleWebSocket upgrades to WebSocket and runs the turn loop over it.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
		if err := h.states.Save(ctx, sessionID, conversation.NewState()); err != nil {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "could not start session"})
			return
		}
		greeting := h.engine.Greeting()
		h.recordTranscript(ctx, sessionID, "assistant", greeting)
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})
		_ = websocket.JSON.Send(conn, h.outbound(greeting, sessionID, false))
	} else {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})
	}

	h.logger.Info("chat: websocket opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("chat: websocket closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		resp := h.processTurn(ctx, sessionID, msg.Text)
		if !resp.Success {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."})
			continue
		}
		_ = websocket.JSON.Send(conn, h.outbound(resp.Response, sessionID, resp.Ended))
		if resp.Ended {
			return
		}
	}
}

func (h *Handler) outbound(text, sessionID string, ended bool) OutboundMessage {
	return OutboundMessage{
		Type:      "message",
		Role:      "assistant",
		Text:      text,
		SessionID: sessionID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Ended:     ended,
	}
}
