package sdk

import "time"

type Status struct {
	State     string `json:"state"`
	Online    uint32 `json:"online"`
	Max       int    `json:"max"`
	Reachable bool   `json:"reachable"`
}

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

type HistoryEntry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Subject   string    `json:"subject"`
	Detail    string    `json:"detail"`
	Failed    bool      `json:"failed"`
	CreatedAt time.Time `json:"created_at"`
}

type BackupInfo struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

type CommandRequest struct {
	Command string `json:"command"`
}

type CommandResponse struct {
	Command  string `json:"command"`
	Response string `json:"response"`
}

// Event is one message of the event stream.
type Event struct {
	Type     string    `json:"type"`
	Player   string    `json:"player,omitempty"`
	Message  string    `json:"message,omitempty"`
	ExitCode int       `json:"exitCode,omitempty"`
	Time     time.Time `json:"time"`

	// set on replies to commands sent over the socket
	Command  string `json:"command,omitempty"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}
