package js8

import (
	"fmt"
	"regexp"
	"strings"
)

var grid4Regex = regexp.MustCompile(`(?i)\b[A-R]{2}[0-9]{2}\b`)

// ParseGrid converts a Maidenhead locator ("FN31" or "FN31pr") to the
// longitude and latitude of its centre.
func ParseGrid(grid string) (float64, float64, error) {
	grid = strings.ToUpper(strings.TrimSpace(grid))
	if len(grid) < 4 {
		return 0, 0, fmt.Errorf("gridsquare too short: %s", grid)
	}
	if grid[0] < 'A' || grid[0] > 'R' || grid[1] < 'A' || grid[1] > 'R' {
		return 0, 0, fmt.Errorf("invalid gridsquare field: %s", grid)
	}
	if grid[2] < '0' || grid[2] > '9' || grid[3] < '0' || grid[3] > '9' {
		return 0, 0, fmt.Errorf("invalid gridsquare square: %s", grid)
	}

	lon := float64(grid[0]-'A')*20.0 - 180.0
	lat := float64(grid[1]-'A')*10.0 - 90.0
	lon += float64(grid[2]-'0') * 2.0
	lat += float64(grid[3]-'0') * 1.0

	if len(grid) >= 6 {
		if grid[4] < 'A' || grid[4] > 'X' || grid[5] < 'A' || grid[5] > 'X' {
			return 0, 0, fmt.Errorf("invalid gridsquare subsquare: %s", grid)
		}
		lon += float64(grid[4]-'A') * (2.0 / 24.0)
		lat += float64(grid[5]-'A') * (1.0 / 24.0)
		// centre of the 6-char subsquare
		lon += 1.0 / 24.0
		lat += 0.5 / 24.0
	} else {
		lon += 1.0
		lat += 0.5
	}

	return lon, lat, nil
}

// Grid4 returns the 4-character square of a locator, or "" when grid is
// shorter than that.
func Grid4(grid string) string {
	grid = strings.ToUpper(strings.TrimSpace(grid))
	if len(grid) < 4 {
		return ""
	}
	return grid[:4]
}

// IsBeaconText reports CQ and heartbeat lines.
func IsBeaconText(text string) bool {
	upper := strings.ToUpper(strings.TrimSpace(text))
	return strings.HasPrefix(upper, "CQ") ||
		strings.HasPrefix(upper, "@HB") ||
		strings.HasPrefix(upper, "HB") ||
		strings.HasPrefix(upper, "HEARTBEAT")
}

// ApplyGridIfHeartbeat appends the 4-char grid to a CQ or heartbeat line
// that does not already carry one.
func ApplyGridIfHeartbeat(text, grid string) string {
	trimmed := strings.TrimSpace(text)
	g := Grid4(grid)
	if g == "" || !IsBeaconText(trimmed) {
		return trimmed
	}
	if grid4Regex.MatchString(trimmed) {
		return trimmed
	}
	return strings.TrimSpace(trimmed + " " + g)
}
