package chat

// notifyPresence pushes the room's current roster to its subscribers. Nothing
// is sent once the room has been deleted.
func (h *Hub) notifyPresence(code string) {
	members, ok := h.rooms.Members(code)
	if !ok {
		return
	}
	h.broadcast(code, EventUserUpdate, UserUpdate{Count: len(members), Users: members})
}
