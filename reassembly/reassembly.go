// Package reassembly groups multi-part decoder frames into messages by
// approximate audio frequency.
package reassembly

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"js8msg/frame"
)

const (
	// DefaultTolerance is how far apart (Hz) two frames may be and still
	// belong to the same transmission.
	DefaultTolerance = 10.0
	// DefaultTimeout bounds how long an incomplete message is held.
	DefaultTimeout = 90 * time.Second
)

type buffer struct {
	frames      []frame.DecodedFrame
	firstSeenAt time.Time
	key         int
}

// Buffer holds in-progress messages, at most one per frequency bucket.
// It is not safe for concurrent use; the station loop owns it.
type Buffer struct {
	Tolerance float64
	Timeout   time.Duration

	buffers map[int]*buffer
}

// New creates a Buffer with the default tolerance and timeout.
func New() *Buffer {
	return &Buffer{
		Tolerance: DefaultTolerance,
		Timeout:   DefaultTimeout,
		buffers:   make(map[int]*buffer),
	}
}

// Ingest adds a frame. It returns any partial messages flushed because
// their buffer timed out, followed by the message this frame completed.
func (b *Buffer) Ingest(f frame.DecodedFrame, now time.Time) []frame.Message {
	if f.ReceivedAt.IsZero() {
		f.ReceivedAt = now
	}
	out := b.Sweep(now)

	key, found := b.match(f.FrequencyHz)

	switch {
	case f.IsSingle():
		if found {
			delete(b.buffers, key)
		}
		return append(out, frame.FromFrame(f))

	case f.IsFirst():
		if found {
			delete(b.buffers, key)
		}
		b.open(f, now)
		return out

	case found:
		buf := b.buffers[key]
		buf.frames = append(buf.frames, f)
		if f.IsLast() {
			delete(b.buffers, key)
			out = append(out, assemble(buf, false))
		}
		return out

	default:
		// No open buffer: assume the first frame was missed.
		buf := b.open(f, now)
		if f.IsLast() {
			delete(b.buffers, buf.key)
			out = append(out, assemble(buf, false))
		}
		return out
	}
}

// Sweep flushes every buffer older than Timeout as a partial message.
func (b *Buffer) Sweep(now time.Time) []frame.Message {
	var expired []int
	for key, buf := range b.buffers {
		if now.Sub(buf.firstSeenAt) > b.Timeout {
			expired = append(expired, key)
		}
	}
	if len(expired) == 0 {
		return nil
	}
	sort.Ints(expired)

	out := make([]frame.Message, 0, len(expired))
	for _, key := range expired {
		out = append(out, assemble(b.buffers[key], true))
		delete(b.buffers, key)
	}
	return out
}

// Pending returns the number of open buffers.
func (b *Buffer) Pending() int {
	return len(b.buffers)
}

func (b *Buffer) open(f frame.DecodedFrame, now time.Time) *buffer {
	key := int(math.Round(f.FrequencyHz))
	buf := &buffer{
		frames:      []frame.DecodedFrame{f},
		firstSeenAt: now,
		key:         key,
	}
	b.buffers[key] = buf
	return buf
}

// match finds the open buffer whose key is within Tolerance of freq. The
// closest key wins when buckets overlap.
func (b *Buffer) match(freq float64) (int, bool) {
	best, found := 0, false
	bestDist := math.Inf(1)
	for key := range b.buffers {
		d := math.Abs(freq - float64(key))
		if d <= b.Tolerance && (d < bestDist || (d == bestDist && key < best)) {
			best, bestDist, found = key, d, true
		}
	}
	return best, found
}

func assemble(buf *buffer, partial bool) frame.Message {
	var text strings.Builder
	for i, f := range buf.frames {
		if i > 0 && needsSpace(text.String(), f.Text) {
			text.WriteByte(' ')
		}
		text.WriteString(f.Text)
	}

	msg := frame.FromFrame(buf.frames[len(buf.frames)-1])
	msg.Text = text.String()
	msg.Frames = len(buf.frames)
	msg.Partial = partial
	return msg
}

// needsSpace decides whether two fragments need a separating space. Frames
// break mid-word, so fragments are glued unless the previous token holds a
// digit (a callsign or number field) or ends in ':'.
func needsSpace(prev, next string) bool {
	prevRunes := []rune(strings.TrimRightFunc(prev, unicode.IsSpace))
	nextTrim := strings.TrimLeftFunc(next, unicode.IsSpace)
	if len(prevRunes) == 0 || nextTrim == "" {
		return false
	}
	if len(prevRunes) < len([]rune(prev)) || len(nextTrim) < len(next) {
		// already separated by whitespace
		return false
	}

	prevChar := prevRunes[len(prevRunes)-1]
	nextChar := []rune(nextTrim)[0]
	if (!isAlnum(prevChar) && prevChar != ':') || !isAlnum(nextChar) {
		return false
	}

	start := len(prevRunes) - 1
	for start >= 0 && !unicode.IsSpace(prevRunes[start]) {
		start--
	}
	token := prevRunes[start+1:]
	for _, r := range token {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return prevChar == ':'
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
