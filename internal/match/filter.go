package match

import (
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/voyagen/darteve/internal/models"
)

// FilterAll selects every sport or status.
const FilterAll = "All"

// View is a match together with its status at a given instant.
type View struct {
	models.Match
	Status models.Status `json:"status"`
	Time   string        `json:"time"`
}

// NewView classifies m at now.
func NewView(m models.Match, now time.Time) View {
	status, display := Classify(m.RawStatus, m.StartTime, now)
	return View{Match: m, Status: status, Time: display}
}

// Counts tallies views per sport and per status, as shown on the filter bar.
type Counts struct {
	Total    int `json:"total"`
	Football int `json:"football"`
	Cricket  int `json:"cricket"`
	Live     int `json:"live"`
	Upcoming int `json:"upcoming"`
	Recent   int `json:"recent"`
}

// Filter classifies matches at now and keeps those matching sport and status.
// Empty or "All" disables a criterion; "Ended" is accepted for Recent.
// Counts cover the full, unfiltered set.
func Filter(matches []models.Match, sport, status string, now time.Time) ([]View, Counts) {
	views := lo.Map(matches, func(m models.Match, _ int) View { return NewView(m, now) })

	var c Counts
	for _, v := range views {
		c.Total++
		switch v.Sport {
		case models.SportFootball:
			c.Football++
		case models.SportCricket:
			c.Cricket++
		}
		switch v.Status {
		case models.StatusLive:
			c.Live++
		case models.StatusUpcoming:
			c.Upcoming++
		case models.StatusRecent:
			c.Recent++
		}
	}

	wantStatus := parseStatus(status)
	out := lo.Filter(views, func(v View, _ int) bool {
		if sport != "" && !strings.EqualFold(sport, FilterAll) && !strings.EqualFold(sport, v.Sport) {
			return false
		}
		return wantStatus == "" || v.Status == wantStatus
	})
	return out, c
}

func parseStatus(s string) models.Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "live":
		return models.StatusLive
	case "upcoming":
		return models.StatusUpcoming
	case "recent", "ended":
		return models.StatusRecent
	default:
		return ""
	}
}
