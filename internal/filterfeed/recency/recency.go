// Package recency derives the most-recently-updated ticket from a set of
// normalized issues and renders bucketed relative-age strings.
package recency

import (
	"fmt"
	"time"

	"github.com/jirafeed/jirafeed/internal/filterfeed/normalize"
)

// jiraTimeLayout is the timestamp format Jira servers emit, e.g.
// "2024-03-01T12:34:56.000+0100". RFC3339 is accepted as well.
const jiraTimeLayout = "2006-01-02T15:04:05.000-0700"

// unknownTime is the sentinel rendered for timestamps that cannot be parsed.
const unknownTime = "unknown time"

// MostRecentTicket summarizes the issue with the newest update time.
type MostRecentTicket struct {
	Key          string `json:"key"`
	Summary      string `json:"summary"`
	Updated      string `json:"updated"`
	UpdatedHuman string `json:"updated_human"`
}

// MostRecent selects the issue with the maximum `updated` value and returns it
// with a relative-age string computed against now. Returns nil for empty input.
//
// Selection compares the raw ISO-8601 strings lexically rather than parsed
// times. This is only correct while all timestamps share one timezone
// representation; ties keep the earlier issue in response order.
func MostRecent(issues []normalize.Issue, now time.Time) *MostRecentTicket {
	if len(issues) == 0 {
		return nil
	}

	best := issues[0]
	for _, issue := range issues[1:] {
		if issue.Updated > best.Updated {
			best = issue
		}
	}

	return &MostRecentTicket{
		Key:          best.Key,
		Summary:      best.Summary,
		Updated:      best.Updated,
		UpdatedHuman: Humanize(best.Updated, now),
	}
}

// Humanize renders an ISO-8601 timestamp as a bucketed relative-age string:
// "just now", "N minute(s) ago", "N hour(s) ago", "N day(s) ago",
// "N week(s) ago" or "N month(s) ago". Malformed timestamps degrade to
// "unknown time" instead of failing the aggregation.
func Humanize(timestamp string, now time.Time) string {
	parsed, err := parseTimestamp(timestamp)
	if err != nil {
		return unknownTime
	}

	elapsed := now.Sub(parsed)
	if elapsed < 0 {
		elapsed = 0
	}

	days := int(elapsed.Hours()) / 24
	switch {
	case days >= 30:
		return plural(days/30, "month")
	case days >= 7:
		return plural(days/7, "week")
	case days >= 2:
		return fmt.Sprintf("%d days ago", days)
	case days == 1:
		return "1 day ago"
	}

	if hours := int(elapsed.Hours()); hours >= 1 {
		return plural(hours, "hour")
	}
	if minutes := int(elapsed.Minutes()); minutes >= 1 {
		return plural(minutes, "minute")
	}
	return "just now"
}

func parseTimestamp(timestamp string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, timestamp); err == nil {
		return parsed, nil
	}
	return time.Parse(jiraTimeLayout, timestamp)
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
