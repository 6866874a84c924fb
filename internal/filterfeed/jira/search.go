package jira

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// serverPageCap is the largest page the v3 search endpoints accept.
const serverPageCap = 1000

// searchFields is the fixed set of issue fields requested from the search API.
var searchFields = []string{
	"summary", "status", "assignee", "priority", "issuetype",
	"updated", "created", "parent", "labels", "project", "components", "issuelinks",
}

// searchPage is one page of search results together with its continuation state.
type searchPage struct {
	Issues    []RawIssue
	NextToken string
	Last      bool
}

// searchStrategy is one endpoint variant for executing a JQL search. Strategies
// are tried in a fixed fallback order; the continuation token is opaque to the
// caller and only meaningful to the strategy that issued it.
type searchStrategy interface {
	name() string
	fetch(ctx context.Context, c *Client, jql string, pageSize int, token string) (*searchPage, error)
}

// searchStrategies is the fallback order: the token-paginated v3 endpoint via
// GET, the same endpoint via POST, and finally the legacy startAt-paginated
// search route.
var searchStrategies = []searchStrategy{
	tokenSearchGET{},
	tokenSearchPOST{},
	legacySearch{},
}

// Search executes a JQL query and returns at most maxResults raw issues,
// following continuation tokens across pages. Endpoint variants are attempted
// in a fixed order for the first page; the first variant that succeeds is kept
// for the remainder of the search, because continuation tokens are not portable
// across endpoints. If every variant fails, the search fails as a whole and no
// partial results are reported.
func (c *Client) Search(ctx context.Context, jql string, maxResults int) ([]RawIssue, error) {
	if maxResults <= 0 {
		return nil, nil
	}

	var collected []RawIssue
	var pinned searchStrategy
	token := ""

	for len(collected) < maxResults {
		pageSize := maxResults - len(collected)
		if pageSize > serverPageCap {
			pageSize = serverPageCap
		}

		page, strategy, err := c.fetchPage(ctx, pinned, jql, pageSize, token)
		if err != nil {
			return nil, err
		}
		pinned = strategy

		for _, issue := range page.Issues {
			if len(collected) >= maxResults {
				break
			}
			collected = append(collected, issue)
		}

		if len(collected) > 0 && len(collected)%100 == 0 {
			c.logger.Infof("Fetched %d issues...", len(collected))
		}

		if page.Last || len(page.Issues) == 0 || page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	return collected, nil
}

// fetchPage fetches one page, trying each endpoint variant at most once. When a
// strategy is already pinned from an earlier page, only that strategy is used.
func (c *Client) fetchPage(ctx context.Context, pinned searchStrategy, jql string, pageSize int, token string) (*searchPage, searchStrategy, error) {
	if pinned != nil {
		page, err := pinned.fetch(ctx, c, jql, pageSize, token)
		if err != nil {
			return nil, nil, fmt.Errorf("search via %s failed: %w", pinned.name(), err)
		}
		return page, pinned, nil
	}

	var lastErr error
	for _, strategy := range searchStrategies {
		page, err := strategy.fetch(ctx, c, jql, pageSize, token)
		if err == nil {
			return page, strategy, nil
		}
		lastErr = err
		c.logger.WithError(err).Warnf("search via %s failed, trying next endpoint variant", strategy.name())
	}
	return nil, nil, fmt.Errorf("all search endpoint variants failed: %w", lastErr)
}

// tokenSearchResponse is the shape shared by both /rest/api/3/search/jql variants.
type tokenSearchResponse struct {
	Issues        []RawIssue `json:"issues"`
	IsLast        *bool      `json:"isLast"`
	NextPageToken string     `json:"nextPageToken"`
}

func (r *tokenSearchResponse) page() *searchPage {
	// a missing isLast field is treated as terminal only when no token is present
	last := r.NextPageToken == ""
	if r.IsLast != nil {
		last = *r.IsLast
	}
	return &searchPage{Issues: r.Issues, NextToken: r.NextPageToken, Last: last}
}

type tokenSearchGET struct{}

func (tokenSearchGET) name() string { return "GET /rest/api/3/search/jql" }

func (tokenSearchGET) fetch(ctx context.Context, c *Client, jql string, pageSize int, token string) (*searchPage, error) {
	params := url.Values{}
	params.Set("jql", jql)
	params.Set("maxResults", strconv.Itoa(pageSize))
	params.Set("fields", strings.Join(searchFields, ","))
	if token != "" {
		params.Set("nextPageToken", token)
	}

	var resp tokenSearchResponse
	if err := c.get(ctx, "/rest/api/3/search/jql", params, &resp); err != nil {
		return nil, err
	}
	return resp.page(), nil
}

type tokenSearchPOST struct{}

func (tokenSearchPOST) name() string { return "POST /rest/api/3/search/jql" }

func (tokenSearchPOST) fetch(ctx context.Context, c *Client, jql string, pageSize int, token string) (*searchPage, error) {
	body := map[string]any{
		"jql":        jql,
		"maxResults": pageSize,
		"fields":     searchFields,
	}
	if token != "" {
		body["nextPageToken"] = token
	}

	var resp tokenSearchResponse
	if err := c.post(ctx, "/rest/api/3/search/jql", body, &resp); err != nil {
		return nil, err
	}
	return resp.page(), nil
}

// legacySearch targets the deprecated /rest/api/3/search route, which paginates
// with startAt offsets. The offset is carried in the opaque continuation token.
type legacySearch struct{}

func (legacySearch) name() string { return "GET /rest/api/3/search" }

func (legacySearch) fetch(ctx context.Context, c *Client, jql string, pageSize int, token string) (*searchPage, error) {
	startAt := 0
	if token != "" {
		parsed, err := strconv.Atoi(token)
		if err != nil {
			return nil, fmt.Errorf("malformed continuation token %q: %w", token, err)
		}
		startAt = parsed
	}

	params := url.Values{}
	params.Set("jql", jql)
	params.Set("maxResults", strconv.Itoa(pageSize))
	params.Set("fields", strings.Join(searchFields, ","))
	params.Set("startAt", strconv.Itoa(startAt))

	var resp struct {
		Issues  []RawIssue `json:"issues"`
		StartAt int        `json:"startAt"`
		Total   int        `json:"total"`
	}
	if err := c.get(ctx, "/rest/api/3/search", params, &resp); err != nil {
		return nil, err
	}

	next := resp.StartAt + len(resp.Issues)
	page := &searchPage{Issues: resp.Issues, Last: next >= resp.Total}
	if !page.Last {
		page.NextToken = strconv.Itoa(next)
	}
	return page, nil
}
