package txgate

import (
	"strings"
)

// Request is one transmit request as handed to the encoder engine.
type Request struct {
	Text             string
	MyCall           string
	MyGrid           string
	SelectedCall     string // directed recipient, "" for undirected
	Submode          int
	AudioFrequencyHz float64
	TxDelaySec       float64
	ForceIdentify    bool
	ForceData        bool
}

// OnAir returns the message as the engine will key it: directed text gets
// the selected call in front unless it already leads with it or is a
// CQ / heartbeat / @ALLCALL line.
func (r Request) OnAir() string {
	return BuildTxMessage(r.Text, r.SelectedCall)
}

// BuildTxMessage reconstructs the transmitted line for text sent to
// directedCall.
func BuildTxMessage(text, directedCall string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	selected := strings.ToUpper(strings.TrimSpace(directedCall))
	if selected == "" {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "`") {
		return trimmed
	}

	upper := strings.ToUpper(trimmed)
	if strings.HasPrefix(upper, "@ALLCALL") ||
		strings.HasPrefix(upper, "CQ") ||
		strings.HasPrefix(upper, "HB") ||
		strings.HasPrefix(upper, "HEARTBEAT") {
		return trimmed
	}
	if strings.HasPrefix(upper, selected) {
		return trimmed
	}
	return selected + " " + trimmed
}
