package js8

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// RelayCommand is the Command value of a relay directive.
const RelayCommand = ">"

// ErrNotDirected is returned for text that is not a directed command.
var ErrNotDirected = errors.New("not a directed command")

// Directed is a message addressed FROM: TO COMMAND [payload].
type Directed struct {
	From    string
	To      string
	Command string
	Payload string
}

// IsRelay reports a TO>payload relay directive.
func (d Directed) IsRelay() bool { return d.Command == RelayCommand }

// Heartbeat is a "FROM: @HB HEARTBEAT" announcement.
type Heartbeat struct {
	From string
}

var heartbeatRegex = regexp.MustCompile(`(?i)^\s*([^:]+):\s+@HB\s+HEARTBEAT\b`)

// ParseHeartbeat matches the heartbeat form. It is checked before
// ParseDirected since "@HB HEARTBEAT" would otherwise parse as a directed
// command to the @HB group.
func ParseHeartbeat(text string) (Heartbeat, bool) {
	m := heartbeatRegex.FindStringSubmatch(text)
	if m == nil {
		return Heartbeat{}, false
	}
	from := strings.TrimSpace(m[1])
	if from == "" {
		return Heartbeat{}, false
	}
	return Heartbeat{From: from}, true
}

// ParseDirected parses the two directed forms:
//
//	FROM: TO COMMAND [payload...]
//	FROM: TO>payload            (relay, Command is ">")
//
// The '>' may abut the payload or end the TO token. Only relay directives
// may omit the FROM: prefix.
func ParseDirected(text string) (Directed, error) {
	tokens := strings.Fields(text)
	if len(tokens) < 2 {
		return Directed{}, fmt.Errorf("%w: need at least two tokens", ErrNotDirected)
	}

	index := 0
	from := ""
	toToken := tokens[0]
	if strings.HasSuffix(toToken, ":") {
		from = strings.TrimRight(toToken, ":")
		index++
		if index >= len(tokens) {
			return Directed{}, fmt.Errorf("%w: missing recipient", ErrNotDirected)
		}
		toToken = tokens[index]
	}

	var to, command string
	var payload []string

	if cut := strings.IndexByte(toToken, '>'); cut >= 0 {
		to = toToken[:cut]
		command = RelayCommand
		if inline := toToken[cut+1:]; inline != "" {
			payload = append(payload, inline)
		}
		payload = append(payload, tokens[index+1:]...)
	} else {
		if index+1 >= len(tokens) {
			return Directed{}, fmt.Errorf("%w: missing command", ErrNotDirected)
		}
		to = toToken
		command = tokens[index+1]
		payload = tokens[index+2:]
	}

	if to == "" || command == "" {
		return Directed{}, fmt.Errorf("%w: empty recipient or command", ErrNotDirected)
	}
	if from == "" && command != RelayCommand {
		return Directed{}, fmt.Errorf("%w: missing sender", ErrNotDirected)
	}

	return Directed{
		From:    from,
		To:      to,
		Command: command,
		Payload: strings.Join(payload, " "),
	}, nil
}
