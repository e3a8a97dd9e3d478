// Package match derives the live status of matches at read time.
package match

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/voyagen/darteve/internal/models"
)

// Classification thresholds.
const (
	// secondsThreshold separates epoch seconds from epoch milliseconds.
	secondsThreshold = 1_000_000_000_000
	// StartTolerance is how early a match may be treated as already live.
	StartTolerance = 10 * time.Minute
	// LiveWindow is how long after its start a match counts as live.
	LiveWindow = 8 * time.Hour
)

var (
	upcomingTokens = []string{"upcoming", "scheduled", "not started", "soon", "pre", "tbd", "fixture"}
	recentTokens   = []string{"ended", "finished", "completed", "final", "ft", "full time", "result", "recent", "post"}
)

// Classify returns the status of a match and a short display string.
// startTime is epoch seconds or milliseconds; zero or negative means unknown,
// in which case rawStatus decides. It has no side effects and must be called
// on every read.
func Classify(rawStatus string, startTime int64, now time.Time) (models.Status, string) {
	if startTime > 0 {
		if startTime < secondsThreshold {
			startTime *= 1000
		}
		elapsed := now.Sub(time.UnixMilli(startTime))
		switch {
		case elapsed < -StartTolerance:
			return models.StatusUpcoming, "Starts in " + humanize(-elapsed)
		case elapsed <= LiveWindow:
			if elapsed < time.Minute {
				return models.StatusLive, "Live Now"
			}
			return models.StatusLive, "Live · " + humanize(elapsed)
		default:
			return models.StatusRecent, "Ended " + humanize(elapsed-LiveWindow) + " ago"
		}
	}

	norm := normalizeStatus(rawStatus)
	switch {
	case hasToken(norm, upcomingTokens):
		return models.StatusUpcoming, "Upcoming"
	case hasToken(norm, recentTokens):
		return models.StatusRecent, "Ended"
	default:
		return models.StatusLive, "Live Now"
	}
}

// normalizeStatus lowercases s and reduces it to single-space separated
// words padded with a space on each side, so tokens match on word boundaries.
func normalizeStatus(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(words, " ") + " "
}

func hasToken(norm string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(norm, " "+t+" ") {
			return true
		}
	}
	return false
}

func humanize(d time.Duration) string {
	d = d.Round(time.Minute)
	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	minutes := int(d/time.Minute) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %02dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %02dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
