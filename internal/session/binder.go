package session

import (
	"errors"
	"strings"
)

var (
	ErrMissingName  = errors.New("missing name")
	ErrMissingCode  = errors.New("missing room code")
	ErrRoomNotFound = errors.New("room does not exist")
)

// userMessages is the text shown on the entry form for each failure.
var userMessages = map[error]string{
	ErrMissingName:  "Please enter a name.",
	ErrMissingCode:  "Please enter a room code.",
	ErrRoomNotFound: "Room does not exist.",
}

// ValidationError is a user-correctable entry failure. It echoes the submitted
// values so the form can be shown again.
type ValidationError struct {
	Err  error
	Name string
	Code string
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// Message is the user-facing text for the failure.
func (e *ValidationError) Message() string {
	if msg, ok := userMessages[e.Err]; ok {
		return msg
	}
	return e.Err.Error()
}

// Binding ties one client session to a room and a display name.
type Binding struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

func (b Binding) Valid() bool {
	return b.Room != "" && b.Name != ""
}

// Request is the entry form as submitted.
type Request struct {
	Name   string
	Code   string
	Join   bool
	Create bool
}

// Rooms is the part of the room registry the binder needs.
type Rooms interface {
	Create() string
	Exists(code string) bool
}

type Binder struct {
	rooms Rooms
}

func NewBinder(rooms Rooms) *Binder {
	return &Binder{rooms: rooms}
}

// Bind validates the request and returns the binding to attach to the
// caller's session. Create wins over join; a create request ignores any code.
func (b *Binder) Bind(req Request) (Binding, error) {
	name := strings.TrimSpace(req.Name)
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	fail := func(err error) (Binding, error) {
		return Binding{}, &ValidationError{Err: err, Name: req.Name, Code: req.Code}
	}

	if name == "" {
		return fail(ErrMissingName)
	}
	if req.Create {
		return Binding{Room: b.rooms.Create(), Name: name}, nil
	}
	if code == "" && req.Join {
		return fail(ErrMissingCode)
	}
	if code == "" || !b.rooms.Exists(code) {
		return fail(ErrRoomNotFound)
	}
	return Binding{Room: code, Name: name}, nil
}
