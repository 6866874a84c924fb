package jira

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gojira "github.com/andygrunwald/go-jira"
	"github.com/sirupsen/logrus"
)

const (
	defaultTimeout = 30 * time.Second

	// maximum number of response body bytes preserved in an APIError
	errorBodyLimit = 2048
)

// Options configure the connection to a Jira instance.
type Options struct {
	// Endpoint is the base URL of the Jira instance, e.g. https://example.atlassian.net
	Endpoint string
	// Email and APIToken form the basic auth pair (Jira Cloud uses the API token as password)
	Email    string
	APIToken string
	// InsecureSkipVerify disables TLS certificate verification
	InsecureSkipVerify bool
	// Timeout bounds every individual request; defaults to 30s when zero
	Timeout time.Duration
}

// QueryDefinition is a resolved server-side filter: its id, display name and JQL.
type QueryDefinition struct {
	ID   string
	Name string
	JQL  string
}

// RawIssue is one issue as returned by the search API, kept as a generic tree so
// that normalization can degrade gracefully on missing sub-objects.
type RawIssue map[string]any

// Client talks to the Jira REST API. It resolves saved filters and executes
// paginated JQL searches with endpoint-compatibility fallback.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Entry
}

// NewClient creates a Jira client with a reusable authenticated HTTP session.
func NewClient(opts Options, logger *logrus.Entry) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("jira endpoint must not be empty")
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	transport := &gojira.BasicAuthTransport{
		Username: opts.Email,
		Password: opts.APIToken,
	}
	if opts.InsecureSkipVerify {
		transport.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	httpClient := transport.Client()
	httpClient.Timeout = timeout

	return &Client{
		baseURL:    strings.TrimRight(opts.Endpoint, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Resolve fetches the definition of a saved filter. It returns an error wrapping
// ErrNotFound when the server does not know the filter id, and an *APIError on
// any other failure. Resolution is never retried within a cycle.
func (c *Client) Resolve(ctx context.Context, filterID string) (*QueryDefinition, error) {
	path := fmt.Sprintf("/rest/api/3/filter/%s", url.PathEscape(filterID))

	var filter struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		JQL  string `json:"jql"`
	}
	if err := c.get(ctx, path, nil, &filter); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("filter %s: %w", filterID, ErrNotFound)
		}
		return nil, fmt.Errorf("cannot resolve filter %s: %w", filterID, err)
	}

	id := filter.ID
	if id == "" {
		id = filterID
	}
	return &QueryDefinition{ID: id, Name: filter.Name, JQL: filter.JQL}, nil
}

// get issues a GET request against the API and decodes a JSON response into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, params, nil, out)
}

// post issues a POST request with a JSON body and decodes a JSON response into out.
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	requestURL := endpoint
	if len(params) > 0 {
		requestURL = endpoint + "?" + params.Encode()
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("cannot marshal request body: %w", err)
		}
		payload = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, payload)
	if err != nil {
		return fmt.Errorf("cannot create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Endpoint: fmt.Sprintf("%s %s", method, path), Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   fmt.Sprintf("%s %s", method, path),
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("cannot decode response from %s: %w", path, err)
	}
	return nil
}
