package js8

import "strings"

// reservedTokens are first-word tokens that look like addresses but never
// name a station.
var reservedTokens = map[string]bool{
	"CQ":        true,
	"HB":        true,
	"HEARTBEAT": true,
	"ALLCALL":   true,
	"@ALLCALL":  true,
}

// IsCallsignLike checks the loose callsign shape used for heard lists and
// relay targets: 3-12 chars of [A-Z0-9/], at least one letter and one digit.
func IsCallsignLike(token string) bool {
	if len(token) < 3 || len(token) > 12 {
		return false
	}
	var hasLetter, hasDigit bool
	for _, c := range token {
		switch {
		case c >= 'A' && c <= 'Z':
			hasLetter = true
		case c >= '0' && c <= '9':
			hasDigit = true
		case c == '/':
		default:
			return false
		}
	}
	return hasLetter && hasDigit
}

// IsReserved reports tokens such as CQ or @ALLCALL.
func IsReserved(token string) bool {
	return reservedTokens[strings.ToUpper(token)]
}

// IsGroup reports a group address such as @ALLCALL or @JS8NET.
func IsGroup(target string) bool {
	return strings.Contains(target, "@")
}

// IsSelf reports whether call names the operator. Portable and prefixed
// forms match when any non-empty /-delimited part appears on both sides,
// so W1AW/P matches W1AW and VE3/W1AW.
func IsSelf(myCall, call string) bool {
	mine := strings.ToUpper(strings.TrimSpace(myCall))
	theirs := strings.ToUpper(strings.TrimSpace(call))
	if mine == "" || theirs == "" {
		return false
	}
	if mine == theirs {
		return true
	}
	theirParts := strings.Split(theirs, "/")
	for _, part := range strings.Split(mine, "/") {
		if part == "" {
			continue
		}
		for _, other := range theirParts {
			if part == other {
				return true
			}
		}
	}
	return false
}

// NormalizeCall trims and uppercases a callsign.
func NormalizeCall(call string) string {
	return strings.ToUpper(strings.TrimSpace(call))
}
