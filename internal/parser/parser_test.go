package parser

import (
	"testing"

	"craftbridge/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   domain.LogEvent
		wantOK bool
	}{
		{
			name:   "ready",
			line:   `Done (32.184s)! For help, type "help"`,
			want:   domain.LogEvent{Kind: domain.LogServerReady, Text: "32.184s"},
			wantOK: true,
		},
		{
			name:   "ready with log prefix",
			line:   `[12:01:44] [Server thread/INFO]: Done (4.512s)! For help, type "help"`,
			want:   domain.LogEvent{Kind: domain.LogServerReady, Text: "4.512s"},
			wantOK: true,
		},
		{
			name:   "joined",
			line:   "Notch joined the game",
			want:   domain.LogEvent{Kind: domain.LogPlayerJoined, Text: "Notch"},
			wantOK: true,
		},
		{
			name:   "joined with log prefix",
			line:   "[12:03:10] [Server thread/INFO]: Herobrine joined the game",
			want:   domain.LogEvent{Kind: domain.LogPlayerJoined, Text: "Herobrine"},
			wantOK: true,
		},
		{
			name:   "left",
			line:   "[12:09:00] [Server thread/INFO]: Notch left the game\r",
			want:   domain.LogEvent{Kind: domain.LogPlayerLeft, Text: "Notch"},
			wantOK: true,
		},
		{
			name:   "joined after a rename",
			line:   "[12:05:00] [Server thread/INFO]: Steve (formerly known as Alex) joined the game",
			want:   domain.LogEvent{Kind: domain.LogPlayerJoined, Text: "Steve"},
			wantOK: true,
		},
		{
			name:   "left after a rename",
			line:   "Steve (formerly known as Alex) left the game",
			want:   domain.LogEvent{Kind: domain.LogPlayerLeft, Text: "Steve"},
			wantOK: true,
		},
		{
			name: "chat with other parenthesised text",
			line: "[12:05:30] [Server thread/INFO]: <Griefer> Steve (really) joined the game",
		},
		{
			name: "chat impersonating a join",
			line: "[12:04:00] [Server thread/INFO]: <Griefer> Notch joined the game",
		},
		{
			name: "unrelated",
			line: "[12:00:01] [Server thread/INFO]: Preparing level \"world\"",
		},
		{
			name: "empty",
			line: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorLine(t *testing.T) {
	ev := ErrorLine("Exception in thread \"main\"\n")
	assert.Equal(t, domain.LogEvent{Kind: domain.LogServerError, Text: "Exception in thread \"main\""}, ev)
}

func TestParseRoster(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     domain.Roster
	}{
		{
			name:     "two players",
			response: "There are 2 of a max of 20 players online: Notch Herobrine",
			want:     domain.Roster{Count: 2, Max: 20, Players: []string{"Notch", "Herobrine"}},
		},
		{
			name:     "comma separated",
			response: "There are 2 of a max of 20 players online: Notch, Herobrine",
			want:     domain.Roster{Count: 2, Max: 20, Players: []string{"Notch", "Herobrine"}},
		},
		{
			name:     "nobody online",
			response: "There are 0 of a max of 10 players online: ",
			want:     domain.Roster{Count: 0, Max: 10, Players: []string{}},
		},
		{
			name:     "empty response",
			response: "",
			want:     domain.Roster{Players: []string{}},
		},
		{
			name:     "unknown format",
			response: "Unknown command",
			want:     domain.Roster{Players: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRoster(tt.response))
		})
	}
}
