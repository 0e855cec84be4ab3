package room

import "time"

// TimeLayout is the wall-clock resolution stamped on every message.
const TimeLayout = "15:04:05"

const (
	enteredText = "has entered the room"
	leftText    = "has left the room"
)

// Message is one entry in a room's log. It is also the outbound wire shape.
type Message struct {
	Name   string `json:"name"`
	Body   string `json:"message"`
	Time   string `json:"time"`
	IsFile bool   `json:"is_file"`

	// FileType is null on the wire when the sender declared none.
	FileType *string `json:"file_type"`
}

func NewMessage(name, body string, isFile bool, fileType string, at time.Time) Message {
	msg := Message{
		Name:   name,
		Body:   body,
		Time:   at.Format(TimeLayout),
		IsFile: isFile,
	}
	if fileType != "" {
		msg.FileType = &fileType
	}
	return msg
}

// Entered is the synthetic message relayed when a member joins.
func Entered(name string, at time.Time) Message {
	return NewMessage(name, enteredText, false, "", at)
}

// Left is the synthetic message relayed when a member leaves.
func Left(name string, at time.Time) Message {
	return NewMessage(name, leftText, false, "", at)
}

// Snapshot is a copy of a room's state; mutating it never touches the registry.
type Snapshot struct {
	Code     string    `json:"code"`
	Members  []string  `json:"members"`
	Messages []Message `json:"messages"`
}

type room struct {
	members   map[string]struct{}
	messages  []Message
	createdAt time.Time
}

func newRoom(at time.Time) *room {
	return &room{
		members:   make(map[string]struct{}),
		messages:  make([]Message, 0),
		createdAt: at,
	}
}
