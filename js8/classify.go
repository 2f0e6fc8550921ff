package js8

import "strings"

// Kind is the classification of an assembled message.
type Kind int

const (
	KindTraffic   Kind = iota // Anything not addressed as a command
	KindHeartbeat             // FROM: @HB HEARTBEAT
	KindQuery                 // FROM: TO COMMAND [payload]
	KindRelay                 // FROM: TO>payload
)

func (k Kind) String() string {
	switch k {
	case KindHeartbeat:
		return "heartbeat"
	case KindQuery:
		return "query"
	case KindRelay:
		return "relay"
	default:
		return "traffic"
	}
}

// Classification is the result of Classify.
type Classification struct {
	Kind      Kind
	Heartbeat Heartbeat
	Directed  Directed
}

// Classify sorts message text into heartbeat, directed query, relay
// directive or plain traffic. Heartbeats are matched first.
func Classify(text string) Classification {
	if hb, ok := ParseHeartbeat(text); ok {
		return Classification{Kind: KindHeartbeat, Heartbeat: hb}
	}
	d, err := ParseDirected(text)
	if err != nil {
		return Classification{Kind: KindTraffic}
	}
	if d.IsRelay() {
		return Classification{Kind: KindRelay, Directed: d}
	}
	return Classification{Kind: KindQuery, Directed: d}
}

// Commands answered automatically.
const (
	CmdSNR     = "SNR?"
	CmdSNRAlt  = "?"
	CmdInfo    = "INFO?"
	CmdStatus  = "STATUS?"
	CmdHearing = "HEARING?"
	CmdGrid    = "GRID?"
	CmdAgain   = "AGN?"
)

// NormalizeCommand uppercases a command token for table lookup.
func NormalizeCommand(cmd string) string {
	return strings.ToUpper(strings.TrimSpace(cmd))
}
