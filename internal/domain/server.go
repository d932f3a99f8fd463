package domain

import (
	"fmt"
	"time"
)

// LifecycleState is the state of the supervised server process.
type LifecycleState int

const (
	Stopped LifecycleState = iota
	Starting
	Running
	Stopping
	Crashed
)

func (s LifecycleState) String() string {
	switch s {
	case Stopped:
		return "STOPPED"
	case Starting:
		return "STARTING"
	case Running:
		return "RUNNING"
	case Stopping:
		return "STOPPING"
	case Crashed:
		return "CRASHED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

func (s LifecycleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *LifecycleState) UnmarshalText(text []byte) error {
	for _, candidate := range []LifecycleState{Stopped, Starting, Running, Stopping, Crashed} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown lifecycle state %q", string(text))
}

// Roster is a live read of the players connected to the server.
type Roster struct {
	Count   int      `json:"count"`
	Max     int      `json:"max"`
	Players []string `json:"players"`
}

type ServerStats struct {
	PID int32   `json:"pid"`
	CPU float64 `json:"cpu"`
	RAM uint64  `json:"ram"`
}

type StatusReport struct {
	State     LifecycleState `json:"state"`
	Online    uint32         `json:"online"`
	Max       int            `json:"max"`
	Reachable bool           `json:"reachable"`
}

type HistoryEntry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Subject   string    `json:"subject"`
	Detail    string    `json:"detail"`
	Failed    bool      `json:"failed"`
	CreatedAt time.Time `json:"created_at"`
}
