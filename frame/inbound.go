package frame

// InboundKind identifies what a frame source delivered.
type InboundKind int

const (
	InboundDecoded InboundKind = iota
	InboundDecodeStarted
	InboundDecodeFinished
	InboundError
)

func (k InboundKind) String() string {
	switch k {
	case InboundDecoded:
		return "decoded"
	case InboundDecodeStarted:
		return "decode_started"
	case InboundDecodeFinished:
		return "decode_finished"
	case InboundError:
		return "error"
	default:
		return "unknown"
	}
}

// Inbound is one event from the decoder engine. Only InboundDecoded carries
// a Frame; the cycle markers are informational.
type Inbound struct {
	Kind     InboundKind
	Frame    DecodedFrame
	Submodes int    // InboundDecodeStarted
	Count    int    // InboundDecodeFinished
	Error    string // InboundError
}
