package jira

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type headerAuth struct {
	header string
	value  string
}

func (h *headerAuth) Name() string { return "test" }

func (h *headerAuth) Apply(req *http.Request) error {
	req.Header.Set(h.header, h.value)
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient(server.URL, &headerAuth{header: "Authorization", value: "Bearer test-token"})
	c.retries = 1
	return c
}

func TestMyself(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/myself", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"accountId":"abc123","displayName":"Jane Doe"}`))
	})

	me, err := client.Myself(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", me.AccountID)
	assert.Equal(t, "Jane Doe", me.DisplayName)
}

func TestSearchIssues(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/search", r.URL.Path)
		assert.Equal(t, "project IN (PROJ)", r.URL.Query().Get("jql"))
		assert.Equal(t, "25", r.URL.Query().Get("maxResults"))

		_, _ = w.Write([]byte(`{"startAt":0,"maxResults":25,"total":1,"issues":[
			{"key":"PROJ-1","fields":{"summary":"A bug","status":{"name":"Open"}}}]}`))
	})

	issues, err := client.SearchIssues(context.Background(), "project IN (PROJ)", 25)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "PROJ-1", issues[0].Key)
	assert.Equal(t, "A bug", issues[0].Fields.Summary)
	assert.Equal(t, "Open", issues[0].Fields.Status.Name)
}

func TestGetIssueEscapesKey(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"key":"PROJ-7","fields":{"summary":"x"}}`))
	})

	_, err := client.GetIssue(context.Background(), "PROJ-7")
	require.NoError(t, err)
	assert.Equal(t, "/rest/api/2/issue/PROJ-7", gotPath)
}

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "auth required", http.StatusUnauthorized)
	})

	_, err := client.GetIssue(context.Background(), "PROJ-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRedirectMapsToSentinel(t *testing.T) {
	// An SSO gateway answers with a 302 to its login page. The client must
	// not follow it and must report an auth failure.
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://login.example.com/", http.StatusFound)
	})

	_, err := client.GetIssue(context.Background(), "PROJ-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestNotFoundMapsToSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such issue", http.StatusNotFound)
	})

	_, err := client.GetIssue(context.Background(), "PROJ-404")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServerErrorRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"key":"PROJ-1","fields":{"summary":"ok"}}`))
	})

	issue, err := client.GetIssue(context.Background(), "PROJ-1")
	require.NoError(t, err)
	assert.Equal(t, "PROJ-1", issue.Key)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad field", http.StatusBadRequest)
	})

	_, err := client.GetIssue(context.Background(), "PROJ-1")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "bad field")
}

func TestUpdateIssueNoContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.UpdateIssue(context.Background(), "PROJ-1", map[string]any{"summary": "new"})
	require.NoError(t, err)
}

func TestCreateIssueRefetches(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/rest/api/2/issue":
			_, _ = w.Write([]byte(`{"id":"1","key":"PROJ-9","self":"..."}`))
		case r.Method == http.MethodGet && r.URL.Path == "/rest/api/2/issue/PROJ-9":
			_, _ = w.Write([]byte(`{"key":"PROJ-9","fields":{"summary":"created","status":{"name":"Open"}}}`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	})

	issue, err := client.CreateIssue(context.Background(), map[string]any{"summary": "created"})
	require.NoError(t, err)
	assert.Equal(t, "PROJ-9", issue.Key)
	assert.Equal(t, "created", issue.Fields.Summary)
}

func TestTransitions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/issue/PROJ-1/transitions", r.URL.Path)
		_, _ = w.Write([]byte(`{"transitions":[
			{"id":"11","name":"Start Progress","to":{"name":"In Progress"}},
			{"id":"21","name":"Done","to":{"name":"Done"}}]}`))
	})

	transitions, err := client.Transitions(context.Background(), "PROJ-1")
	require.NoError(t, err)
	require.Len(t, transitions, 2)
	assert.Equal(t, "11", transitions[0].ID)
	assert.Equal(t, "In Progress", transitions[0].To.Name)
}

func TestBoardsAndSprints(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/agile/1.0/board":
			assert.Equal(t, "PROJ", r.URL.Query().Get("projectKeyOrId"))
			_, _ = w.Write([]byte(`{"isLast":true,"values":[{"id":3,"name":"PROJ board","type":"scrum"}]}`))
		case "/rest/agile/1.0/board/3/sprint":
			assert.Equal(t, "active", r.URL.Query().Get("state"))
			_, _ = w.Write([]byte(`{"isLast":true,"values":[{"id":42,"name":"Sprint 42","state":"active"}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	boards, err := client.Boards(context.Background(), "PROJ")
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Equal(t, 3, boards[0].ID)

	sprints, err := client.BoardSprints(context.Background(), 3, "active")
	require.NoError(t, err)
	require.Len(t, sprints, 1)
	assert.Equal(t, "Sprint 42", sprints[0].Name)
}

func TestMoveIssuesToSprint(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/agile/1.0/sprint/42/issue", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.MoveIssuesToSprint(context.Background(), 42, []string{"PROJ-1", "PROJ-2"})
	require.NoError(t, err)
}

func TestBaseURLTrailingSlashTrimmed(t *testing.T) {
	c := NewClient("https://jira.example.com/", nil)
	assert.Equal(t, "https://jira.example.com", c.BaseURL())
}
