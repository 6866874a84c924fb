package normalize

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/jirafeed/jirafeed/internal/filterfeed/jira"
)

func decodeIssue(t *testing.T, payload string) jira.RawIssue {
	t.Helper()
	var raw jira.RawIssue
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("cannot decode test payload: %v", err)
	}
	return raw
}

func TestNormalizeFullPayload(t *testing.T) {
	raw := decodeIssue(t, `{
		"id": "10001",
		"key": "PROJ-1",
		"fields": {
			"summary": "Fix login flow",
			"status": {"name": "In Progress", "statusCategory": {"name": "In Progress"}},
			"assignee": {"accountId": "abc123", "displayName": "Jane Doe", "emailAddress": "jane@example.com"},
			"priority": {"name": "High"},
			"issuetype": {"name": "Bug"},
			"parent": {"key": "PROJ-100", "id": "10100", "fields": {"summary": "Login epic"}},
			"labels": ["auth", "frontend"],
			"created": "2024-01-01T10:00:00.000+0000",
			"updated": "2024-02-01T10:00:00.000+0000"
		}
	}`)

	issue := Normalize(raw)

	if issue.ID != "10001" || issue.Key != "PROJ-1" {
		t.Errorf("unexpected identity: id=%q key=%q", issue.ID, issue.Key)
	}
	if issue.Summary != "Fix login flow" {
		t.Errorf("unexpected summary: %q", issue.Summary)
	}
	if issue.Status.Name == nil || *issue.Status.Name != "In Progress" {
		t.Errorf("unexpected status name: %v", issue.Status.Name)
	}
	if issue.Status.Category == nil || *issue.Status.Category != "In Progress" {
		t.Errorf("unexpected status category: %v", issue.Status.Category)
	}
	if issue.Assignee == nil {
		t.Fatal("expected assignee, got nil")
	}
	if *issue.Assignee.DisplayName != "Jane Doe" || *issue.Assignee.AccountID != "abc123" || *issue.Assignee.EmailAddress != "jane@example.com" {
		t.Errorf("unexpected assignee: %+v", issue.Assignee)
	}
	if issue.Priority == nil || *issue.Priority != "High" {
		t.Errorf("unexpected priority: %v", issue.Priority)
	}
	if issue.IssueType == nil || *issue.IssueType != "Bug" {
		t.Errorf("unexpected issue type: %v", issue.IssueType)
	}
	if issue.Parent == nil {
		t.Fatal("expected parent, got nil")
	}
	if *issue.Parent.Key != "PROJ-100" || *issue.Parent.ID != "10100" || *issue.Parent.Summary != "Login epic" {
		t.Errorf("unexpected parent: %+v", issue.Parent)
	}
	if !reflect.DeepEqual(issue.Labels, []string{"auth", "frontend"}) {
		t.Errorf("unexpected labels: %v", issue.Labels)
	}
	if issue.Created != "2024-01-01T10:00:00.000+0000" || issue.Updated != "2024-02-01T10:00:00.000+0000" {
		t.Errorf("unexpected timestamps: created=%q updated=%q", issue.Created, issue.Updated)
	}
}

func TestNormalizeMissingOptionals(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		check   func(t *testing.T, issue Issue)
	}{
		{
			name:    "empty object",
			payload: `{}`,
			check: func(t *testing.T, issue Issue) {
				if issue.ID != "" || issue.Key != "" || issue.Summary != "" {
					t.Errorf("expected empty identity, got %+v", issue)
				}
				if issue.Status.Name != nil || issue.Status.Category != nil {
					t.Errorf("expected null status fields, got %+v", issue.Status)
				}
				if issue.Assignee != nil || issue.Parent != nil || issue.Priority != nil || issue.IssueType != nil {
					t.Errorf("expected null optionals, got %+v", issue)
				}
				if issue.Labels == nil || len(issue.Labels) != 0 {
					t.Errorf("expected empty labels slice, got %v", issue.Labels)
				}
			},
		},
		{
			name:    "explicit null sub-objects",
			payload: `{"id":"1","key":"X-1","fields":{"summary":"s","status":null,"assignee":null,"priority":null,"issuetype":null,"parent":null,"labels":null}}`,
			check: func(t *testing.T, issue Issue) {
				if issue.Assignee != nil || issue.Parent != nil || issue.Priority != nil || issue.IssueType != nil {
					t.Errorf("expected null optionals, got %+v", issue)
				}
				if issue.Status.Name != nil {
					t.Errorf("expected null status name, got %v", *issue.Status.Name)
				}
			},
		},
		{
			name:    "status without category",
			payload: `{"fields":{"status":{"name":"Done"}}}`,
			check: func(t *testing.T, issue Issue) {
				if issue.Status.Name == nil || *issue.Status.Name != "Done" {
					t.Errorf("unexpected status name: %v", issue.Status.Name)
				}
				if issue.Status.Category != nil {
					t.Errorf("expected null category, got %v", *issue.Status.Category)
				}
			},
		},
		{
			name:    "priority object without name",
			payload: `{"fields":{"priority":{}}}`,
			check: func(t *testing.T, issue Issue) {
				if issue.Priority != nil {
					t.Errorf("expected null priority, got %v", *issue.Priority)
				}
			},
		},
		{
			name:    "parent without nested fields",
			payload: `{"fields":{"parent":{"key":"P-1","id":"2"}}}`,
			check: func(t *testing.T, issue Issue) {
				if issue.Parent == nil {
					t.Fatal("expected parent")
				}
				if issue.Parent.Summary != nil {
					t.Errorf("expected null parent summary, got %v", *issue.Parent.Summary)
				}
			},
		},
		{
			name:    "unexpected field types do not panic",
			payload: `{"id":5,"key":["X"],"fields":{"summary":7,"labels":[1,"real",null],"status":"open"}}`,
			check: func(t *testing.T, issue Issue) {
				if issue.ID != "" || issue.Key != "" || issue.Summary != "" {
					t.Errorf("expected empty scalars for mistyped input, got %+v", issue)
				}
				if !reflect.DeepEqual(issue.Labels, []string{"real"}) {
					t.Errorf("expected only string labels, got %v", issue.Labels)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Normalize(decodeIssue(t, tt.payload)))
		})
	}
}

func TestNormalizeSerializesNullsNotAbsentKeys(t *testing.T) {
	issue := Normalize(decodeIssue(t, `{"key":"X-1"}`))

	data, err := json.Marshal(issue)
	if err != nil {
		t.Fatalf("cannot marshal issue: %v", err)
	}

	var serialized map[string]any
	if err := json.Unmarshal(data, &serialized); err != nil {
		t.Fatalf("cannot unmarshal issue: %v", err)
	}

	for _, key := range []string{"assignee", "priority", "issueType", "parent", "status", "labels"} {
		if _, present := serialized[key]; !present {
			t.Errorf("expected key %q to be present in serialized issue", key)
		}
	}
	if serialized["assignee"] != nil {
		t.Errorf("expected null assignee, got %v", serialized["assignee"])
	}
	if _, ok := serialized["labels"].([]any); !ok {
		t.Errorf("expected labels to serialize as an array, got %T", serialized["labels"])
	}
}
