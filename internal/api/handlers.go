package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"invaders/internal/room"

	"github.com/go-chi/chi/v5"
)

type routerHandlers struct {
	directory *room.Directory
	gateway   *WSGateway
}

// handleCreateRoom allocates a fresh room and returns its code.
func (h *routerHandlers) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	code, _, err := h.directory.Create()
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	UpdateRoomCount(h.directory.Len())
	writeJSON(w, map[string]string{"roomCode": code})
}

// handleInitRoom performs the one-shot init of a room under an explicit
// code. 409 when the room is already initialized.
func (h *routerHandlers) handleInitRoom(w http.ResponseWriter, r *http.Request) {
	code := normalizeCode(chi.URLParam(r, "code"))
	if code == "" {
		writeError(w, "missing room code", http.StatusBadRequest)
		return
	}
	rm := h.directory.GetOrCreate(code)
	if err := rm.Init(code); err != nil {
		if errors.Is(err, room.ErrAlreadyInitialized) {
			writeError(w, "Already initialized", http.StatusConflict)
			return
		}
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	UpdateRoomCount(h.directory.Len())
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleRoomInfo reports {roomCode, playerCount, status}; 404 when the room
// does not exist or was never initialized.
func (h *routerHandlers) handleRoomInfo(w http.ResponseWriter, r *http.Request) {
	rm := h.directory.Get(normalizeCode(chi.URLParam(r, "code")))
	if rm == nil {
		writeError(w, "no such room", http.StatusNotFound)
		return
	}
	info, err := rm.Info()
	if err != nil {
		writeError(w, "room not initialized", http.StatusNotFound)
		return
	}
	writeJSON(w, info)
}

// handleWS routes a websocket upgrade to the room actor.
func (h *routerHandlers) handleWS(w http.ResponseWriter, r *http.Request) {
	rm := h.directory.Get(normalizeCode(chi.URLParam(r, "code")))
	h.gateway.HandleUpgrade(w, r, rm)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding error", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
