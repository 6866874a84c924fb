package recency

import (
	"testing"
	"time"

	"github.com/jirafeed/jirafeed/internal/filterfeed/normalize"
)

func issueWith(key, updated string) normalize.Issue {
	return normalize.Issue{Key: key, Summary: "summary of " + key, Updated: updated}
}

func TestMostRecent(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		issues      []normalize.Issue
		expectedKey string
		expectNil   bool
	}{
		{
			name:      "empty input",
			issues:    nil,
			expectNil: true,
		},
		{
			name: "selects maximum updated value",
			issues: []normalize.Issue{
				issueWith("A-1", "2024-01-01T00:00:00Z"),
				issueWith("A-2", "2024-03-01T00:00:00Z"),
				issueWith("A-3", "2024-02-01T00:00:00Z"),
			},
			expectedKey: "A-2",
		},
		{
			name: "tie keeps response order",
			issues: []normalize.Issue{
				issueWith("B-1", "2024-03-01T00:00:00Z"),
				issueWith("B-2", "2024-03-01T00:00:00Z"),
			},
			expectedKey: "B-1",
		},
		{
			name: "single issue",
			issues: []normalize.Issue{
				issueWith("C-1", "2024-03-01T00:00:00Z"),
			},
			expectedKey: "C-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MostRecent(tt.issues, now)
			if tt.expectNil {
				if result != nil {
					t.Fatalf("expected nil, got %+v", result)
				}
				return
			}
			if result == nil {
				t.Fatal("expected a result, got nil")
			}
			if result.Key != tt.expectedKey {
				t.Errorf("expected key %q, got %q", tt.expectedKey, result.Key)
			}
			if result.Summary != "summary of "+tt.expectedKey {
				t.Errorf("unexpected summary: %q", result.Summary)
			}
			if result.UpdatedHuman == "" {
				t.Error("expected a relative-age string")
			}
		})
	}
}

func TestHumanize(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		ago      time.Duration
		expected string
	}{
		{name: "seconds render as just now", ago: 30 * time.Second, expected: "just now"},
		{name: "90 seconds is one minute", ago: 90 * time.Second, expected: "1 minute ago"},
		{name: "plural minutes", ago: 45 * time.Minute, expected: "45 minutes ago"},
		{name: "single hour", ago: 90 * time.Minute, expected: "1 hour ago"},
		{name: "plural hours", ago: 23 * time.Hour, expected: "23 hours ago"},
		{name: "single day", ago: 30 * time.Hour, expected: "1 day ago"},
		{name: "three days", ago: 3 * 24 * time.Hour, expected: "3 days ago"},
		{name: "six days stays in days", ago: 6*24*time.Hour + 12*time.Hour, expected: "6 days ago"},
		{name: "single week", ago: 8 * 24 * time.Hour, expected: "1 week ago"},
		{name: "plural weeks", ago: 20 * 24 * time.Hour, expected: "2 weeks ago"},
		{name: "forty days is one month", ago: 40 * 24 * time.Hour, expected: "1 month ago"},
		{name: "plural months", ago: 70 * 24 * time.Hour, expected: "2 months ago"},
		{name: "future timestamp clamps to just now", ago: -time.Hour, expected: "just now"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timestamp := now.Add(-tt.ago).Format(time.RFC3339)
			if got := Humanize(timestamp, now); got != tt.expected {
				t.Errorf("Humanize(%q) = %q, expected %q", timestamp, got, tt.expected)
			}
		})
	}
}

func TestHumanizeJiraTimestampFormat(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	// Jira servers emit millisecond precision with a zone offset and no colon
	if got := Humanize("2024-06-01T11:00:00.000+0000", now); got != "1 hour ago" {
		t.Errorf("expected '1 hour ago', got %q", got)
	}
}

func TestHumanizeMalformedTimestamp(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, timestamp := range []string{"", "not-a-timestamp", "2024-13-45"} {
		if got := Humanize(timestamp, now); got != "unknown time" {
			t.Errorf("Humanize(%q) = %q, expected 'unknown time'", timestamp, got)
		}
	}
}
