// Package parser classifies server console output.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"craftbridge/internal/domain"
)

type pattern struct {
	kind domain.LogEventKind
	re   *regexp.Regexp
}

// renamed matches the suffix the server adds after a name change.
const renamed = `(?: \(formerly known as [^()\s]+\))?`

// Checked in order; the first match wins.
var patterns = []pattern{
	{domain.LogServerReady, regexp.MustCompile(`Done \(([^)]*)\)! For help, type "help"`)},
	{domain.LogPlayerJoined, regexp.MustCompile(`(?:^|\]: )([^\s<>\[\]]+)` + renamed + ` joined the game\s*$`)},
	{domain.LogPlayerLeft, regexp.MustCompile(`(?:^|\]: )([^\s<>\[\]]+)` + renamed + ` left the game\s*$`)},
}

var rosterRe = regexp.MustCompile(`There are (\d+) of a max(?: of)? (\d+) players online:(.*)`)

// Parse classifies one line of standard output. Lines matching no known
// pattern are reported with ok == false.
func Parse(line string) (ev domain.LogEvent, ok bool) {
	line = strings.TrimRight(line, "\r\n")
	for _, p := range patterns {
		if m := p.re.FindStringSubmatch(line); m != nil {
			return domain.LogEvent{Kind: p.kind, Text: m[1]}, true
		}
	}
	return domain.LogEvent{}, false
}

// ErrorLine wraps a line from the error stream. It is never pattern-matched.
func ErrorLine(line string) domain.LogEvent {
	return domain.LogEvent{Kind: domain.LogServerError, Text: strings.TrimRight(line, "\r\n")}
}

// ParseRoster reads the response to the "list" command. Text that does not
// match yields an empty roster instead of an error.
func ParseRoster(response string) domain.Roster {
	m := rosterRe.FindStringSubmatch(response)
	if m == nil {
		return domain.Roster{Players: []string{}}
	}

	count, _ := strconv.Atoi(m[1])
	max, _ := strconv.Atoi(m[2])
	players := strings.FieldsFunc(m[3], func(r rune) bool {
		return r == ' ' || r == ',' || r == '\n' || r == '\r' || r == '\t'
	})
	if players == nil {
		players = []string{}
	}

	return domain.Roster{Count: count, Max: max, Players: players}
}
