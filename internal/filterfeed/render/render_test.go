package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jirafeed/jirafeed/internal/filterfeed/feed"
	"github.com/jirafeed/jirafeed/internal/filterfeed/normalize"
	"github.com/jirafeed/jirafeed/internal/filterfeed/recency"
)

func sampleCycle(filterIDs ...string) *feed.Cycle {
	refreshedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cycle := &feed.Cycle{
		Results:     map[string]feed.FilterResult{},
		Order:       filterIDs,
		RefreshedAt: refreshedAt,
	}
	for _, id := range filterIDs {
		status := "In Progress"
		cycle.Results[id] = feed.FilterResult{
			FilterID:   id,
			FilterName: "Filter " + id,
			JQL:        "project = " + id,
			TotalCount: 1,
			Issues: []normalize.Issue{{
				Key:     id + "-1",
				Summary: "An issue",
				Status:  normalize.Status{Name: &status},
				Labels:  []string{},
				Updated: "2024-05-31T12:00:00.000+0000",
			}},
			MostRecent: &recency.MostRecentTicket{
				Key:          id + "-1",
				Summary:      "An issue",
				Updated:      "2024-05-31T12:00:00.000+0000",
				UpdatedHuman: "1 day ago",
			},
			RefreshedAt: refreshedAt,
		}
	}
	return cycle
}

func TestJSONSingleFilterIsArray(t *testing.T) {
	var buffer bytes.Buffer
	if err := JSON(&buffer, sampleCycle("10")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload []map[string]any
	if err := json.Unmarshal(buffer.Bytes(), &payload); err != nil {
		t.Fatalf("expected a JSON array: %v", err)
	}
	if len(payload) != 1 || payload[0]["filter_id"] != "10" {
		t.Errorf("unexpected payload: %v", payload)
	}
	if _, present := payload[0]["most_recent_ticket"]; !present {
		t.Error("expected most_recent_ticket key")
	}
	if _, present := payload[0]["error"]; present {
		t.Error("expected the error key to be omitted on success")
	}
}

func TestJSONMultipleFiltersIsMap(t *testing.T) {
	var buffer bytes.Buffer
	if err := JSON(&buffer, sampleCycle("10", "20")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload map[string]map[string]any
	if err := json.Unmarshal(buffer.Bytes(), &payload); err != nil {
		t.Fatalf("expected a JSON object keyed by filter id: %v", err)
	}
	if len(payload) != 2 {
		t.Errorf("expected 2 entries, got %d", len(payload))
	}
	if payload["20"]["filter_name"] != "Filter 20" {
		t.Errorf("unexpected entry: %v", payload["20"])
	}
}

func TestErrorJSON(t *testing.T) {
	var buffer bytes.Buffer
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := ErrorJSON(&buffer, errors.New("something broke"), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload map[string]string
	if err := json.Unmarshal(buffer.Bytes(), &payload); err != nil {
		t.Fatalf("expected a JSON object: %v", err)
	}
	if payload["error"] != "something broke" || payload["source"] != "error" {
		t.Errorf("unexpected payload: %v", payload)
	}
	if payload["timestamp"] != "2024-06-01T12:00:00Z" {
		t.Errorf("unexpected timestamp: %q", payload["timestamp"])
	}
}

func TestTable(t *testing.T) {
	var buffer bytes.Buffer
	cycle := sampleCycle("10")

	failed := feed.FilterResult{
		FilterID:    "99",
		FilterName:  "filter_99",
		Issues:      []normalize.Issue{},
		RefreshedAt: cycle.RefreshedAt,
		Error:       "filter 99: filter not found",
	}
	cycle.Results["99"] = failed
	cycle.Order = append(cycle.Order, "99")

	if err := Table(&buffer, cycle); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buffer.String()

	for _, expected := range []string{
		"JIRA FILTER RESULTS",
		"Filter 10 (ID: 10)",
		"project = 10",
		"10-1",
		"1 day ago",
		"filter_99",
		"filter 99: filter not found",
	} {
		if !strings.Contains(output, expected) {
			t.Errorf("expected output to contain %q", expected)
		}
	}
}
