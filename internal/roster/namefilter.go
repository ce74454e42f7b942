package roster

import (
	"regexp"
	"strings"
	"unicode"
)

// uiChromeBlacklist holds UI text that must never be treated as a
// participant name. Matched as lowercase substrings.
var uiChromeBlacklist = []string{
	"backgrounds and effects",
	"you can't unmute someone else",
	"your microphone is off.",
	"you can't remotely mute",
	"your microphone is off",
	"your camera is off",
	"microphone is off",
	"camera is off",
	"you can't unmute",
	"can't remotely mute",
	"can't unmute",
	"remotely mute",
	"your microphone",
	"your camera",
	"microphone",
	"camera",
	"settings",
	"options",
	"more options",
	"you're the only one",
	"waiting for others",
	"contributors",
	"connecting",
	"joining",
	"present now",
	"turn on",
	"turn off",
	"mute",
	"unmute",
	"enable",
	"disable",
	"allow",
	"deny",
	"permission",
	"access",
	"grant",
	"denied",
}

var youSuffix = regexp.MustCompile(`(?i)\s*\(you\)$`)

var placeholderName = regexp.MustCompile(`^Participant \d+$`)

// IsPlaceholderName reports whether a name is a synthesized anonymous
// entry from the badge-count fallback.
func IsPlaceholderName(name string) bool {
	return placeholderName.MatchString(strings.TrimSpace(name))
}

// IsValidParticipantName reports whether a string is a plausible human
// name rather than meeting-UI chrome.
func IsValidParticipantName(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return false
	}

	for _, blacklisted := range uiChromeBlacklist {
		if strings.Contains(lower, blacklisted) {
			return false
		}
	}

	if strings.HasPrefix(lower, "your ") || strings.HasPrefix(lower, "you ") {
		return false
	}
	if strings.Contains(lower, "can't") || strings.Contains(lower, "cannot") {
		return false
	}

	// Sentences are notifications, not names.
	if strings.Contains(name, ".") && len(strings.Fields(name)) > 3 {
		return false
	}

	if len(lower) < 2 || len(name) > 100 {
		return false
	}

	for _, r := range name {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// CleanParticipantName trims a raw roster string and removes the
// "(You)" suffix. Returns "" when the result is not a valid name.
func CleanParticipantName(name string) string {
	cleaned := strings.TrimSpace(youSuffix.ReplaceAllString(strings.TrimSpace(name), ""))
	if !IsValidParticipantName(cleaned) {
		return ""
	}
	return cleaned
}

// StripYouSuffix removes a trailing "(you)" marker without validation.
func StripYouSuffix(name string) string {
	return strings.TrimSpace(youSuffix.ReplaceAllString(strings.TrimSpace(name), ""))
}

// HasYouSuffix reports whether the raw name carries the self marker.
func HasYouSuffix(name string) bool {
	return youSuffix.MatchString(strings.TrimSpace(name))
}
