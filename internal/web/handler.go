package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"roomchat/internal/room"
	"roomchat/internal/session"
)

// Binder turns the entry form into a session binding.
type Binder interface {
	Bind(req session.Request) (session.Binding, error)
}

// Sessions writes and clears the session cookie.
type Sessions interface {
	Write(w http.ResponseWriter, b session.Binding) error
	Clear(w http.ResponseWriter)
}

// Rooms is the read side of the room registry.
type Rooms interface {
	Get(code string) (room.Snapshot, bool)
	Len() int
}

type Handler struct {
	binder   Binder
	sessions Sessions
	rooms    Rooms
}

func NewHandler(binder Binder, sessions Sessions, rooms Rooms) *Handler {
	return &Handler{binder: binder, sessions: sessions, rooms: rooms}
}

type entryError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Name  string `json:"name"`
}

type roomView struct {
	Code     string         `json:"code"`
	Name     string         `json:"name"`
	Messages []room.Message `json:"messages"`
}

// Entry shows the entry view. Arriving here always forgets the previous room.
func (h *Handler) Entry(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Enter handles the entry form: create a room or join one by code. The
// create and join flags count when present, whatever their value.
func (h *Handler) Enter(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, entryError{Error: "invalid form"})
		return
	}

	req := session.Request{
		Name:   r.PostForm.Get("name"),
		Code:   r.PostForm.Get("code"),
		Join:   r.PostForm.Has("join"),
		Create: r.PostForm.Has("create"),
	}
	binding, err := h.binder.Bind(req)
	if err != nil {
		var verr *session.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, entryError{Error: verr.Message(), Code: verr.Code, Name: verr.Name})
			return
		}
		slog.Error("bind session failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, entryError{Error: "could not enter room", Code: req.Code, Name: req.Name})
		return
	}

	if err := h.sessions.Write(w, binding); err != nil {
		slog.Error("write session cookie failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, entryError{Error: "could not enter room", Code: req.Code, Name: req.Name})
		return
	}
	http.Redirect(w, r, "/room", http.StatusSeeOther)
}

// Room shows the bound room with its history. A stale or missing binding
// sends the caller back to the entry view.
func (h *Handler) Room(w http.ResponseWriter, r *http.Request) {
	binding, ok := session.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	snap, ok := h.rooms.Get(binding.Room)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, roomView{Code: snap.Code, Name: binding.Name, Messages: snap.Messages})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rooms": h.rooms.Len()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("write json response failed", "err", err)
	}
}
