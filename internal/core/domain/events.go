package domain

// StreamEventType labels events on the per-connection stream.
type StreamEventType string

const (
	EventToken StreamEventType = "token"
	EventFinal StreamEventType = "final"
	EventError StreamEventType = "error"
)

// StreamEvent is one element of the ordered event sequence delivered to a
// connected client. Exactly one terminal event (final or error) ends the
// sequence; nothing follows it.
type StreamEvent struct {
	Type   StreamEventType
	Token  string
	Answer *Answer
	Code   string
	Msg    string
}

func TokenEvent(fragment string) StreamEvent {
	return StreamEvent{Type: EventToken, Token: fragment}
}

func FinalEvent(answer Answer) StreamEvent {
	return StreamEvent{Type: EventFinal, Answer: &answer}
}

func ErrorEvent(code, msg string) StreamEvent {
	return StreamEvent{Type: EventError, Code: code, Msg: msg}
}

func (e StreamEvent) Terminal() bool {
	return e.Type == EventFinal || e.Type == EventError
}
