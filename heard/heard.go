// Package heard tracks which stations have recently been heard on frequency.
package heard

import (
	"sort"
	"strings"
	"time"

	"js8msg/js8"
)

const (
	// DefaultWindow is how long a callsign stays on the heard list.
	DefaultWindow = 15 * time.Minute
	// DefaultLimit is how many calls a HEARING reply carries.
	DefaultLimit = 4
)

// Registry maps callsign to last-heard time. Not safe for concurrent use.
type Registry struct {
	Window time.Duration

	calls map[string]time.Time
}

func New() *Registry {
	return &Registry{
		Window: DefaultWindow,
		calls:  make(map[string]time.Time),
	}
}

// ExtractCallsign pulls the originating callsign from message text, or ""
// when the first token is not a station.
func ExtractCallsign(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	token := strings.ToUpper(strings.TrimRight(fields[0], ":"))
	if i := strings.IndexByte(token, '>'); i >= 0 {
		token = strings.TrimRight(token[:i], ":")
	}
	if strings.HasPrefix(token, "@") || js8.IsReserved(token) {
		return ""
	}
	if !js8.IsCallsignLike(token) {
		return ""
	}
	return token
}

// Observe records the sender of text. It returns the callsign and whether
// one was recorded.
func (r *Registry) Observe(text string, now time.Time) (string, bool) {
	call := ExtractCallsign(text)
	if call == "" {
		return "", false
	}
	r.calls[call] = now
	r.prune(now)
	return call, true
}

// Recent returns up to limit calls heard within the window, most recent
// first, skipping any in exclude (case-insensitive).
func (r *Registry) Recent(exclude []string, limit int, now time.Time) []string {
	r.prune(now)

	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[strings.ToUpper(strings.TrimSpace(e))] = true
	}

	type entry struct {
		call string
		at   time.Time
	}
	entries := make([]entry, 0, len(r.calls))
	for call, at := range r.calls {
		if skip[call] {
			continue
		}
		entries = append(entries, entry{call, at})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].at.Equal(entries[j].at) {
			return entries[i].call < entries[j].call
		}
		return entries[i].at.After(entries[j].at)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.call
	}
	return out
}

// Prune drops entries older than the window.
func (r *Registry) Prune(now time.Time) {
	r.prune(now)
}

// Len returns the number of tracked calls, including stale ones not yet
// pruned.
func (r *Registry) Len() int {
	return len(r.calls)
}

func (r *Registry) prune(now time.Time) {
	for call, at := range r.calls {
		if now.Sub(at) > r.Window {
			delete(r.calls, call)
		}
	}
}
