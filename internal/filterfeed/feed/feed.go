// Package feed orchestrates filter resolution, paginated search, normalization
// and recency analysis into per-filter aggregates, and owns the periodic
// refresh scheduling for long-lived use.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/jirafeed/jirafeed/internal/filterfeed/jira"
	"github.com/jirafeed/jirafeed/internal/filterfeed/normalize"
	"github.com/jirafeed/jirafeed/internal/filterfeed/recency"
)

// FilterSpec names one saved filter to aggregate. Name is optional; when empty
// the server-side filter name is used, falling back to "filter_<id>".
type FilterSpec struct {
	ID   string
	Name string
}

// FilterResult is the aggregate for one filter in one refresh cycle. A non-empty
// Error implies zeroed data fields: a failed filter is never partially populated.
type FilterResult struct {
	FilterID    string                    `json:"filter_id"`
	FilterName  string                    `json:"filter_name"`
	JQL         string                    `json:"jql"`
	TotalCount  int                       `json:"total_count"`
	Issues      []normalize.Issue         `json:"issues"`
	MostRecent  *recency.MostRecentTicket `json:"most_recent_ticket"`
	RefreshedAt time.Time                 `json:"refreshed_at"`
	Error       string                    `json:"error,omitempty"`
}

// Cycle is one complete pass over the configured filters. Results holds exactly
// one FilterResult per configured filter; Order preserves the configured filter
// order for deterministic rendering.
type Cycle struct {
	Results     map[string]FilterResult
	Order       []string
	RefreshedAt time.Time
}

// jiraAPI is the surface of the Jira client the coordinator needs.
type jiraAPI interface {
	Resolve(ctx context.Context, filterID string) (*jira.QueryDefinition, error)
	Search(ctx context.Context, jql string, maxResults int) ([]jira.RawIssue, error)
}

// Config carries the cycle parameters for a Coordinator.
type Config struct {
	Filters    []FilterSpec
	MaxResults int
	// Interval is the refresh period in long-lived mode; ignored for one-shot use.
	Interval time.Duration
}

// Coordinator produces refresh cycles. All per-filter failures are absorbed
// into the corresponding FilterResult: a cycle as a whole never fails because
// of one filter.
type Coordinator struct {
	client jiraAPI
	config Config
	logger *logrus.Entry

	// definitions caches resolved filter definitions for the lifetime of the
	// coordinator, so long-lived mode does not re-fetch names every cycle.
	definitions *cache.Cache

	mu      sync.RWMutex
	current *Cycle

	refreshMu sync.Mutex

	updates chan *Cycle
	trigger chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

// New creates a Coordinator. The logger is injected so the engine carries no
// process-wide logging state.
func New(client jiraAPI, config Config, logger *logrus.Entry) *Coordinator {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Coordinator{
		client:      client,
		config:      config,
		logger:      logger,
		definitions: cache.New(cache.NoExpiration, cache.NoExpiration),
		updates:     make(chan *Cycle, 1),
		trigger:     make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Refresh runs one complete cycle over all configured filters and publishes the
// result as the current snapshot. Filters are fetched sequentially and every
// FilterResult carries the same refreshed-at stamp. A cycle requested while
// another is in flight waits for it; the scheduler avoids that by skipping
// overlapping ticks.
func (c *Coordinator) Refresh(ctx context.Context) *Cycle {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	refreshedAt := time.Now().UTC()
	cycle := &Cycle{
		Results:     make(map[string]FilterResult, len(c.config.Filters)),
		Order:       make([]string, 0, len(c.config.Filters)),
		RefreshedAt: refreshedAt,
	}

	for _, filter := range c.config.Filters {
		cycle.Results[filter.ID] = c.refreshFilter(ctx, filter, refreshedAt)
		cycle.Order = append(cycle.Order, filter.ID)
	}

	c.publish(cycle)
	return cycle
}

func (c *Coordinator) refreshFilter(ctx context.Context, filter FilterSpec, refreshedAt time.Time) FilterResult {
	logger := c.logger.WithField("filter", filter.ID)

	definition, err := c.resolveDefinition(ctx, filter.ID)
	if err != nil {
		logger.WithError(err).Error("cannot resolve filter")
		return errorResult(filter, refreshedAt, err)
	}

	name := displayName(filter, definition)

	if definition.JQL == "" {
		// A filter without JQL yields an empty aggregate, not an error: this is
		// distinct from an API failure.
		logger.Warn("filter has no JQL, reporting empty result")
		return FilterResult{
			FilterID:    filter.ID,
			FilterName:  name,
			Issues:      []normalize.Issue{},
			RefreshedAt: refreshedAt,
		}
	}

	raw, err := c.client.Search(ctx, definition.JQL, c.config.MaxResults)
	if err != nil {
		logger.WithError(err).Error("cannot execute filter query")
		result := errorResult(filter, refreshedAt, err)
		result.FilterName = name
		return result
	}

	issues := make([]normalize.Issue, 0, len(raw))
	for _, item := range raw {
		issues = append(issues, normalize.Normalize(item))
	}

	return FilterResult{
		FilterID:    filter.ID,
		FilterName:  name,
		JQL:         definition.JQL,
		TotalCount:  len(issues),
		Issues:      issues,
		MostRecent:  recency.MostRecent(issues, time.Now().UTC()),
		RefreshedAt: refreshedAt,
	}
}

// resolveDefinition returns the cached definition for a filter id, resolving it
// once per coordinator lifetime. One-shot use creates a fresh coordinator per
// run, so batch invocations re-fetch once per run.
func (c *Coordinator) resolveDefinition(ctx context.Context, filterID string) (*jira.QueryDefinition, error) {
	if cached, ok := c.definitions.Get(filterID); ok {
		return cached.(*jira.QueryDefinition), nil
	}

	definition, err := c.client.Resolve(ctx, filterID)
	if err != nil {
		return nil, err
	}

	c.definitions.Set(filterID, definition, cache.NoExpiration)
	return definition, nil
}

func displayName(filter FilterSpec, definition *jira.QueryDefinition) string {
	if filter.Name != "" {
		return filter.Name
	}
	if definition != nil && definition.Name != "" {
		return definition.Name
	}
	return fmt.Sprintf("filter_%s", filter.ID)
}

func errorResult(filter FilterSpec, refreshedAt time.Time, err error) FilterResult {
	return FilterResult{
		FilterID:    filter.ID,
		FilterName:  displayName(filter, nil),
		Issues:      []normalize.Issue{},
		RefreshedAt: refreshedAt,
		Error:       err.Error(),
	}
}

// publish swaps the current snapshot atomically and notifies any listener,
// coalescing unread updates.
func (c *Coordinator) publish(cycle *Cycle) {
	c.mu.Lock()
	c.current = cycle
	c.mu.Unlock()

	select {
	case c.updates <- cycle:
	default:
		select {
		case <-c.updates:
		default:
		}
		select {
		case c.updates <- cycle:
		default:
		}
	}
}

// Snapshot returns the most recently published cycle, or nil before the first
// refresh completes. Readers never observe a cycle mid-update.
func (c *Coordinator) Snapshot() *Cycle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Updates delivers published cycles to a single listener. Slow listeners only
// ever see the latest cycle; intermediate ones are dropped.
func (c *Coordinator) Updates() <-chan *Cycle {
	return c.updates
}

// Start launches the periodic refresh loop: one immediate cycle, then one per
// interval. Ticks that fire while a cycle is still in flight are skipped rather
// than queued.
func (c *Coordinator) Start(ctx context.Context) {
	go c.run(ctx)
}

// Stop terminates the refresh loop and waits for it to exit.
func (c *Coordinator) Stop() {
	close(c.stop)
	<-c.done
}

// TriggerNow requests an immediate refresh outside the regular interval.
// Pending triggers are coalesced.
func (c *Coordinator) TriggerNow() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)

	interval := c.config.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-c.trigger:
			c.logger.Info("manual refresh triggered")
			c.Refresh(ctx)
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}
