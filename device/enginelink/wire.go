package enginelink

import (
	"js8msg/frame"
	"js8msg/txgate"
)

// Line types on the engine link. Every line is one JSON object.
const (
	typeDecoded        = "decoded"
	typeDecodeStarted  = "decode_started"
	typeDecodeFinished = "decode_finished"
	typeError          = "error"
	typeTxStatus       = "tx_status"
	typeTxResult       = "tx_result"
	typeTransmit       = "transmit"
)

// engineLine is anything the engine sends us.
type engineLine struct {
	Type string `json:"type"`

	// decoded
	UTC     int     `json:"utc,omitempty"`
	SNR     int     `json:"snr,omitempty"`
	DT      float64 `json:"dt,omitempty"`
	Freq    float64 `json:"freq,omitempty"`
	Text    string  `json:"text,omitempty"`
	Flags   int     `json:"flags,omitempty"`
	Quality float64 `json:"quality,omitempty"`
	Submode int     `json:"submode,omitempty"`

	// decode cycle
	Submodes int `json:"submodes,omitempty"`
	Count    int `json:"count,omitempty"`

	// error
	Message string `json:"message,omitempty"`

	// tx_status
	Transmitting bool `json:"transmitting,omitempty"`
	Audio        bool `json:"audio,omitempty"`

	// tx_result
	ID uint64 `json:"id,omitempty"`
	OK bool   `json:"ok,omitempty"`
}

// transmitLine is a request we send to the engine.
type transmitLine struct {
	Type             string  `json:"type"`
	ID               uint64  `json:"id"`
	Text             string  `json:"text"`
	MyCall           string  `json:"my_call"`
	MyGrid           string  `json:"my_grid"`
	SelectedCall     string  `json:"selected_call"`
	Submode          int     `json:"submode"`
	AudioFrequencyHz float64 `json:"audio_frequency_hz"`
	TxDelaySec       float64 `json:"tx_delay_s"`
	ForceIdentify    bool    `json:"force_identify"`
	ForceData        bool    `json:"force_data"`
}

func newTransmitLine(id uint64, r txgate.Request) transmitLine {
	return transmitLine{
		Type:             typeTransmit,
		ID:               id,
		Text:             r.Text,
		MyCall:           r.MyCall,
		MyGrid:           r.MyGrid,
		SelectedCall:     r.SelectedCall,
		Submode:          r.Submode,
		AudioFrequencyHz: r.AudioFrequencyHz,
		TxDelaySec:       r.TxDelaySec,
		ForceIdentify:    r.ForceIdentify,
		ForceData:        r.ForceData,
	}
}

// inbound converts an engine line to what the station consumes. ok is
// false for lines that are not frame-source events.
func (l engineLine) inbound() (frame.Inbound, bool) {
	switch l.Type {
	case typeDecoded:
		return frame.Inbound{
			Kind: frame.InboundDecoded,
			Frame: frame.DecodedFrame{
				UTC:         l.UTC,
				SNR:         l.SNR,
				DT:          l.DT,
				FrequencyHz: l.Freq,
				Text:        l.Text,
				Flags:       frame.Flags(l.Flags),
				Quality:     l.Quality,
				Submode:     l.Submode,
			},
		}, true
	case typeDecodeStarted:
		return frame.Inbound{Kind: frame.InboundDecodeStarted, Submodes: l.Submodes}, true
	case typeDecodeFinished:
		return frame.Inbound{Kind: frame.InboundDecodeFinished, Count: l.Count}, true
	case typeError:
		return frame.Inbound{Kind: frame.InboundError, Error: l.Message}, true
	default:
		return frame.Inbound{}, false
	}
}
