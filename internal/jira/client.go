package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	corePrefix  = "/rest/api/2"
	agilePrefix = "/rest/agile/1.0"

	userAgent = "jiractl/1.0"
)

// Authenticator injects credentials into an outgoing request, either as an
// Authorization header or as session cookies.
type Authenticator interface {
	// Name identifies the mechanism ("bearer", "basic", "cookie") for
	// diagnostics.
	Name() string
	Apply(req *http.Request) error
}

// Client talks to a Jira instance over the core REST API (v2, for
// compatibility with both Cloud and Data Center) and the Agile API (1.0).
type Client struct {
	baseURL string
	auth    Authenticator
	http    *http.Client
	retries uint64
}

// NewClient creates a client for the given base URL. Redirects are not
// followed: an SSO gateway answers protected endpoints with a 302 to its
// login page, and that has to surface as an auth failure, not as HTML.
func NewClient(baseURL string, auth Authenticator) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		http: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		retries: 2,
	}
}

// BaseURL returns the normalized Jira base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// SetAuthenticator swaps the credential source, used after a session refresh.
func (c *Client) SetAuthenticator(auth Authenticator) { c.auth = auth }

// Myself returns the authenticated user. It doubles as the session validity
// probe.
func (c *Client) Myself(ctx context.Context) (*User, error) {
	body, err := c.do(ctx, http.MethodGet, corePrefix+"/myself", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

// SearchIssues runs a JQL query and returns up to maxResults issues.
func (c *Client) SearchIssues(ctx context.Context, jql string, maxResults int) ([]Issue, error) {
	q := url.Values{}
	q.Set("jql", jql)
	q.Set("maxResults", strconv.Itoa(maxResults))

	body, err := c.do(ctx, http.MethodGet, corePrefix+"/search", q, nil)
	if err != nil {
		return nil, fmt.Errorf("search issues: %w", err)
	}

	var sr SearchResult
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return sr.Issues, nil
}

// GetIssue fetches a single issue by key, e.g. "PROJ-123".
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	body, err := c.do(ctx, http.MethodGet, corePrefix+"/issue/"+url.PathEscape(key), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get issue %s: %w", key, err)
	}
	var issue Issue
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, fmt.Errorf("decode issue: %w", err)
	}
	return &issue, nil
}

// GetIssueRaw fetches a single issue and returns the response body verbatim,
// for --json pass-through.
func (c *Client) GetIssueRaw(ctx context.Context, key string) ([]byte, error) {
	body, err := c.do(ctx, http.MethodGet, corePrefix+"/issue/"+url.PathEscape(key), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get issue %s: %w", key, err)
	}
	return body, nil
}

// CreateIssue creates an issue from a fields map and returns the full issue.
// The create endpoint only answers with id/key/self, so the result is
// refetched.
func (c *Client) CreateIssue(ctx context.Context, fields map[string]any) (*Issue, error) {
	body, err := c.do(ctx, http.MethodPost, corePrefix+"/issue", nil, map[string]any{"fields": fields})
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}
	var created createdResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("decode create response: %w", err)
	}
	return c.GetIssue(ctx, created.Key)
}

// UpdateIssue applies a partial fields update to an issue.
func (c *Client) UpdateIssue(ctx context.Context, key string, fields map[string]any) error {
	_, err := c.do(ctx, http.MethodPut, corePrefix+"/issue/"+url.PathEscape(key), nil, map[string]any{"fields": fields})
	if err != nil {
		return fmt.Errorf("update issue %s: %w", key, err)
	}
	return nil
}

// Transitions lists the workflow transitions currently available for an issue.
func (c *Client) Transitions(ctx context.Context, key string) ([]Transition, error) {
	body, err := c.do(ctx, http.MethodGet, corePrefix+"/issue/"+url.PathEscape(key)+"/transitions", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list transitions for %s: %w", key, err)
	}
	var tr transitionsResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode transitions: %w", err)
	}
	return tr.Transitions, nil
}

// TransitionIssue moves an issue through the transition with the given id.
func (c *Client) TransitionIssue(ctx context.Context, key, transitionID string) error {
	payload := map[string]any{"transition": map[string]string{"id": transitionID}}
	_, err := c.do(ctx, http.MethodPost, corePrefix+"/issue/"+url.PathEscape(key)+"/transitions", nil, payload)
	if err != nil {
		return fmt.Errorf("transition issue %s: %w", key, err)
	}
	return nil
}

// AssignIssue sets the assignee of an issue by accountId.
func (c *Client) AssignIssue(ctx context.Context, key, accountID string) error {
	payload := map[string]string{"accountId": accountID}
	_, err := c.do(ctx, http.MethodPut, corePrefix+"/issue/"+url.PathEscape(key)+"/assignee", nil, payload)
	if err != nil {
		return fmt.Errorf("assign issue %s: %w", key, err)
	}
	return nil
}

// SearchUsers finds users matching a free-text query.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]User, error) {
	q := url.Values{}
	q.Set("query", query)
	body, err := c.do(ctx, http.MethodGet, corePrefix+"/user/search", q, nil)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	var users []User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

// AddComment adds a plain-text comment, wrapped in ADF, to an issue.
func (c *Client) AddComment(ctx context.Context, key, text string) error {
	payload := map[string]any{"body": PlainTextToADF(text)}
	_, err := c.do(ctx, http.MethodPost, corePrefix+"/issue/"+url.PathEscape(key)+"/comment", nil, payload)
	if err != nil {
		return fmt.Errorf("comment on %s: %w", key, err)
	}
	return nil
}

// Boards lists Agile boards, optionally filtered by project key or id.
func (c *Client) Boards(ctx context.Context, projectKeyOrID string) ([]Board, error) {
	q := url.Values{}
	if projectKeyOrID != "" {
		q.Set("projectKeyOrId", projectKeyOrID)
	}
	body, err := c.do(ctx, http.MethodGet, agilePrefix+"/board", q, nil)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	var page boardPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode boards: %w", err)
	}
	return page.Values, nil
}

// GetBoard fetches one board by id.
func (c *Client) GetBoard(ctx context.Context, boardID int) (*Board, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/board/%d", agilePrefix, boardID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get board %d: %w", boardID, err)
	}
	var b Board
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("decode board: %w", err)
	}
	return &b, nil
}

// BoardIssues lists the issues on a board.
func (c *Client) BoardIssues(ctx context.Context, boardID int) ([]Issue, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/board/%d/issue", agilePrefix, boardID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list board %d issues: %w", boardID, err)
	}
	var env issuesEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode board issues: %w", err)
	}
	return env.Issues, nil
}

// BoardSprints lists the sprints of a board, optionally filtered by state
// (active, future, closed).
func (c *Client) BoardSprints(ctx context.Context, boardID int, state string) ([]Sprint, error) {
	q := url.Values{}
	if state != "" {
		q.Set("state", state)
	}
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/board/%d/sprint", agilePrefix, boardID), q, nil)
	if err != nil {
		return nil, fmt.Errorf("list board %d sprints: %w", boardID, err)
	}
	var page sprintPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode sprints: %w", err)
	}
	return page.Values, nil
}

// GetSprint fetches one sprint by id.
func (c *Client) GetSprint(ctx context.Context, sprintID int) (*Sprint, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/sprint/%d", agilePrefix, sprintID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get sprint %d: %w", sprintID, err)
	}
	var s Sprint
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("decode sprint: %w", err)
	}
	return &s, nil
}

// CreateSprint creates a future sprint on a board. Dates are ISO strings and
// optional.
func (c *Client) CreateSprint(ctx context.Context, boardID int, name, startDate, endDate, goal string) (*Sprint, error) {
	payload := map[string]any{"name": name, "originBoardId": boardID}
	if startDate != "" {
		payload["startDate"] = startDate
	}
	if endDate != "" {
		payload["endDate"] = endDate
	}
	if goal != "" {
		payload["goal"] = goal
	}
	body, err := c.do(ctx, http.MethodPost, agilePrefix+"/sprint", nil, payload)
	if err != nil {
		return nil, fmt.Errorf("create sprint: %w", err)
	}
	var s Sprint
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("decode sprint: %w", err)
	}
	return &s, nil
}

// UpdateSprintState moves a sprint to a new state. "active" starts it,
// "closed" completes it.
func (c *Client) UpdateSprintState(ctx context.Context, sprintID int, state, startDate, endDate string) (*Sprint, error) {
	payload := map[string]any{"state": state}
	if startDate != "" {
		payload["startDate"] = startDate
	}
	if endDate != "" {
		payload["endDate"] = endDate
	}
	body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("%s/sprint/%d", agilePrefix, sprintID), nil, payload)
	if err != nil {
		return nil, fmt.Errorf("update sprint %d: %w", sprintID, err)
	}
	var s Sprint
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("decode sprint: %w", err)
	}
	return &s, nil
}

// MoveIssuesToSprint moves issues into a sprint.
func (c *Client) MoveIssuesToSprint(ctx context.Context, sprintID int, keys []string) error {
	payload := map[string]any{"issues": keys}
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("%s/sprint/%d/issue", agilePrefix, sprintID), nil, payload)
	if err != nil {
		return fmt.Errorf("move issues to sprint %d: %w", sprintID, err)
	}
	return nil
}

// SprintIssues lists all issues in a sprint.
func (c *Client) SprintIssues(ctx context.Context, sprintID int) ([]Issue, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/sprint/%d/issue", agilePrefix, sprintID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list sprint %d issues: %w", sprintID, err)
	}
	var env issuesEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode sprint issues: %w", err)
	}
	return env.Issues, nil
}

// do executes one authenticated request against the instance. Network errors
// and 5xx answers are retried with exponential backoff; every other failure is
// permanent. A nil body with nil error means 204 No Content.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	var respBody []byte
	op := func() error {
		var bodyReader io.Reader
		if reqBody != nil {
			bodyReader = bytes.NewReader(reqBody)
		}

		req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)
		if reqBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.auth != nil {
			if err := c.auth.Apply(req); err != nil {
				return backoff.Permanent(err)
			}
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("jira request: %w", err)
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusNoContent:
			respBody = nil
			return nil
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			respBody = b
			return nil
		case resp.StatusCode >= 500:
			return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		default:
			return backoff.Permanent(&StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))})
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return respBody, nil
}
