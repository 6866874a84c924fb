// Package normalize flattens raw Jira search payloads into a compact, stable
// schema. Every nested accessor is defensive: a missing or null sub-object
// degrades to a null field in the output, never to a panic.
package normalize

import (
	"github.com/jirafeed/jirafeed/internal/filterfeed/jira"
)

// Status carries the issue status name and its status category name. Both
// degrade to null when the source payload omits them.
type Status struct {
	Name     *string `json:"name"`
	Category *string `json:"category"`
}

// Assignee identifies the user an issue is assigned to.
type Assignee struct {
	AccountID    *string `json:"accountId"`
	DisplayName  *string `json:"displayName"`
	EmailAddress *string `json:"emailAddress"`
}

// Parent references the parent issue of a sub-task or a child of an epic.
type Parent struct {
	Key     *string `json:"key"`
	ID      *string `json:"id"`
	Summary *string `json:"summary"`
}

// Issue is the normalized form of one raw Jira issue. Timestamps are kept as
// the server's ISO-8601 strings and never parsed here.
type Issue struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Summary   string    `json:"summary"`
	Status    Status    `json:"status"`
	Assignee  *Assignee `json:"assignee"`
	Priority  *string   `json:"priority"`
	IssueType *string   `json:"issueType"`
	Parent    *Parent   `json:"parent"`
	Labels    []string  `json:"labels"`
	Created   string    `json:"created"`
	Updated   string    `json:"updated"`
}

// Normalize maps one raw search result item to an Issue. It accepts any
// well-formed JSON object and has no failure mode: absent or null optional
// sub-objects yield null fields.
func Normalize(raw jira.RawIssue) Issue {
	fields := childMap(map[string]any(raw), "fields")
	status := childMap(fields, "status")
	statusCategory := childMap(status, "statusCategory")
	parent := childMap(fields, "parent")

	issue := Issue{
		ID:      stringValue(raw, "id"),
		Key:     stringValue(raw, "key"),
		Summary: stringValue(fields, "summary"),
		Status: Status{
			Name:     stringField(status, "name"),
			Category: stringField(statusCategory, "name"),
		},
		Priority:  stringField(childMap(fields, "priority"), "name"),
		IssueType: stringField(childMap(fields, "issuetype"), "name"),
		Labels:    stringSlice(fields, "labels"),
		Created:   stringValue(fields, "created"),
		Updated:   stringValue(fields, "updated"),
	}

	if assignee := childMap(fields, "assignee"); len(assignee) > 0 {
		issue.Assignee = &Assignee{
			AccountID:    stringField(assignee, "accountId"),
			DisplayName:  stringField(assignee, "displayName"),
			EmailAddress: stringField(assignee, "emailAddress"),
		}
	}

	if len(parent) > 0 {
		issue.Parent = &Parent{
			Key:     stringField(parent, "key"),
			ID:      stringField(parent, "id"),
			Summary: stringField(childMap(parent, "fields"), "summary"),
		}
	}

	return issue
}

// childMap projects a nested object field, defaulting to an empty map when the
// field is absent, null, or not an object.
func childMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	child, _ := m[key].(map[string]any)
	return child
}

// stringValue returns the string at key, or "" when absent or not a string.
func stringValue(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	value, _ := m[key].(string)
	return value
}

// stringField returns a pointer to the string at key, or nil when absent.
func stringField(m map[string]any, key string) *string {
	if m == nil {
		return nil
	}
	value, ok := m[key].(string)
	if !ok {
		return nil
	}
	return &value
}

// stringSlice returns the string elements of the array at key, preserving
// order; non-string elements are skipped. The result is never nil so the
// serialized form is always an array.
func stringSlice(m map[string]any, key string) []string {
	result := []string{}
	if m == nil {
		return result
	}
	raw, _ := m[key].([]any)
	for _, element := range raw {
		if s, ok := element.(string); ok {
			result = append(result, s)
		}
	}
	return result
}
