package feed

import (
	"strings"

	"github.com/voyagen/darteve/internal/models"
)

var (
	defaultKeywords = []string{"sport", "cricket", "football", "soccer", "tennis", "willow", "star", "ten", "espn", "bein", "sky"}
	defaultBlocked  = []string{"movie", "cinema", "film", "drama", "series", "kids", "cartoon", "music", "entertainment", "comedy", "novela"}
)

// Classifier decides which items belong to the live events set.
type Classifier struct {
	Keywords []string
	Blocked  []string
}

// DefaultClassifier uses the built-in sport and block lists.
func DefaultClassifier() Classifier {
	return Classifier{Keywords: defaultKeywords, Blocked: defaultBlocked}
}

// ClassifierFor returns the classifier configured for src, falling back to the defaults per list.
func ClassifierFor(src models.Source) Classifier {
	c := DefaultClassifier()
	if len(src.Keywords) > 0 {
		c.Keywords = src.Keywords
	}
	if len(src.Blocked) > 0 {
		c.Blocked = src.Blocked
	}
	return c
}

// IsEvent reports whether an item with the given texts is a live event.
// always short-circuits to true. Otherwise a blocked word anywhere wins over
// a sport keyword.
func (c Classifier) IsEvent(always bool, texts ...string) bool {
	if always {
		return true
	}
	joined := strings.ToLower(strings.Join(texts, " "))
	if containsAny(joined, c.Blocked) {
		return false
	}
	return containsAny(joined, c.Keywords)
}

// DeriveSport maps free text to one of the sport filters.
func DeriveSport(texts ...string) string {
	joined := strings.ToLower(strings.Join(texts, " "))
	switch {
	case strings.Contains(joined, "cricket"):
		return models.SportCricket
	case strings.Contains(joined, "football"), strings.Contains(joined, "soccer"):
		return models.SportFootball
	default:
		return models.SportOther
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(s, strings.ToLower(w)) {
			return true
		}
	}
	return false
}
