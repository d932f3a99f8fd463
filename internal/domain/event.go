package domain

import "time"

type LogEventKind int

const (
	LogServerReady LogEventKind = iota
	LogPlayerJoined
	LogPlayerLeft
	LogServerError
)

// LogEvent is one classified line of server output. Text carries the boot
// duration, the username or the raw error text depending on Kind.
type LogEvent struct {
	Kind LogEventKind
	Text string
}

type EventType string

const (
	EventPlayerJoined EventType = "player-joined"
	EventPlayerLeft   EventType = "player-left"
	EventServerError  EventType = "error"
	EventClosed       EventType = "close"
	EventStarted      EventType = "started"
	EventStopped      EventType = "stopped"
)

// Event is published to bridge subscribers in the order the supervisor
// produced it.
type Event struct {
	Type     EventType `json:"type"`
	Player   string    `json:"player,omitempty"`
	Message  string    `json:"message,omitempty"`
	ExitCode int       `json:"exitCode,omitempty"`
	Time     time.Time `json:"time"`
}

func PlayerJoined(username string) Event {
	return Event{Type: EventPlayerJoined, Player: username, Time: time.Now()}
}

func PlayerLeft(username string) Event {
	return Event{Type: EventPlayerLeft, Player: username, Time: time.Now()}
}

func ServerError(text string) Event {
	return Event{Type: EventServerError, Message: text, Time: time.Now()}
}

func Closed(exitCode int) Event {
	return Event{Type: EventClosed, ExitCode: exitCode, Time: time.Now()}
}

func Started(bootDuration string) Event {
	return Event{Type: EventStarted, Message: bootDuration, Time: time.Now()}
}

func StoppedEvent() Event {
	return Event{Type: EventStopped, Time: time.Now()}
}
