package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jiractl/internal/config"
	"go-jiractl/internal/jira"
	"go-jiractl/internal/session"
)

func TestMatchTransition(t *testing.T) {
	transitions := []jira.Transition{
		{ID: "11", Name: "Start Progress", To: jira.NamedField{Name: "In Progress"}},
		{ID: "21", Name: "Resolve", To: jira.NamedField{Name: "Done"}},
	}

	tests := []struct {
		target string
		wantID string
		wantOK bool
	}{
		{"Start Progress", "11", true},
		{"start progress", "11", true},
		{"In Progress", "11", true},
		{"in progress", "11", true},
		{"Done", "21", true},
		{"Resolve", "21", true},
		{"Blocked", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			id, ok := matchTransition(transitions, tt.target)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("42", "board id")
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	_, err = parseID("forty-two", "board id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "board id")
}

func TestAssigneeField(t *testing.T) {
	assert.Equal(t, map[string]string{"name": "jsmith"}, assigneeField("jsmith"))

	accountID := "5b10ac8d82e05b22cc7d4ef5"
	assert.Equal(t, map[string]string{"accountId": accountID}, assigneeField(accountID))
}

func TestResolveAccountID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/api/2/myself":
			_, _ = w.Write([]byte(`{"accountId":"me-account-id","displayName":"Me"}`))
		case "/rest/api/2/user/search":
			assert.Equal(t, "jane", r.URL.Query().Get("query"))
			_, _ = w.Write([]byte(`[{"accountId":"jane-account-id","displayName":"Jane"}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := jira.NewClient(server.URL, nil)

	got, err := resolveAccountID(context.Background(), client, "me")
	require.NoError(t, err)
	assert.Equal(t, "me-account-id", got)

	got, err = resolveAccountID(context.Background(), client, "jane")
	require.NoError(t, err)
	assert.Equal(t, "jane-account-id", got)

	long := "5b10ac8d82e05b22cc7d4ef5"
	got, err = resolveAccountID(context.Background(), client, long)
	require.NoError(t, err)
	assert.Equal(t, long, got)
}

func TestResolveAccountIDUserNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := jira.NewClient(server.URL, nil)
	_, err := resolveAccountID(context.Background(), client, "nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nobody")
}

func TestBoardIssuesActiveSprint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/agile/1.0/board/3/sprint":
			assert.Equal(t, "active", r.URL.Query().Get("state"))
			_, _ = w.Write([]byte(`{"values":[{"id":42,"name":"Sprint 42","state":"active"}]}`))
		case "/rest/agile/1.0/sprint/42/issue":
			_, _ = w.Write([]byte(`{"issues":[{"key":"PROJ-1","fields":{"summary":"in sprint"}}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := jira.NewClient(server.URL, nil)
	issues, err := boardIssues(context.Background(), client, 3, "active")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "PROJ-1", issues[0].Key)
}

func TestBoardIssuesNoActiveSprintFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/agile/1.0/board/3/sprint":
			_, _ = w.Write([]byte(`{"values":[]}`))
		case "/rest/agile/1.0/board/3/issue":
			_, _ = w.Write([]byte(`{"issues":[{"key":"PROJ-2","fields":{"summary":"backlog"}}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := jira.NewClient(server.URL, nil)
	issues, err := boardIssues(context.Background(), client, 3, "")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "PROJ-2", issues[0].Key)
}

// fakeRefresher simulates a successful browser login by writing fresh
// cookies into the store.
type fakeRefresher struct {
	store  *session.Store
	called atomic.Int32
}

func (f *fakeRefresher) Refresh(ctx context.Context) error {
	f.called.Add(1)
	return f.store.Save(&session.State{
		SavedAt: time.Now(),
		JiraURL: "https://jira.example.com",
		Cookies: []session.Cookie{{Name: "JSESSIONID", Value: "fresh"}},
	})
}

func TestWithAuthRetryRefreshesSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "JSESSIONID=fresh" {
			http.Error(w, "auth required", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"accountId":"abc","displayName":"Jane"}`))
	}))
	defer server.Close()

	store := session.NewStore(t.TempDir())
	refresher := &fakeRefresher{store: store}
	a := &app{
		cfg:     &config.Config{URL: server.URL},
		store:   store,
		client:  jira.NewClient(server.URL, nil),
		manager: refresher,
	}

	var me *jira.User
	err := a.withAuthRetry(context.Background(), func(ctx context.Context) error {
		var err error
		me, err = a.client.Myself(ctx)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane", me.DisplayName)
	assert.Equal(t, int32(1), refresher.called.Load())
}

func TestWithAuthRetryDoesNotRefreshOnOtherErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	store := session.NewStore(t.TempDir())
	refresher := &fakeRefresher{store: store}
	a := &app{
		cfg:     &config.Config{URL: server.URL, APIToken: "tok"},
		store:   store,
		client:  jira.NewClient(server.URL, nil),
		manager: refresher,
	}

	err := a.withAuthRetry(context.Background(), func(ctx context.Context) error {
		_, err := a.client.Myself(ctx)
		return err
	})
	require.Error(t, err)
	assert.Equal(t, int32(0), refresher.called.Load())
}

func TestWithAuthRetryGivesUpAfterSecondFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "auth required", http.StatusUnauthorized)
	}))
	defer server.Close()

	store := session.NewStore(t.TempDir())
	refresher := &fakeRefresher{store: store}
	a := &app{
		cfg:     &config.Config{URL: server.URL},
		store:   store,
		client:  jira.NewClient(server.URL, nil),
		manager: refresher,
	}

	err := a.withAuthRetry(context.Background(), func(ctx context.Context) error {
		_, err := a.client.Myself(ctx)
		return err
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), refresher.called.Load(), "refresh happens exactly once")
	assert.Equal(t, int32(2), calls.Load(), "request retried exactly once")
}

func TestExecuteIssuesEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/search", r.URL.Path)
		assert.Equal(t, "Bearer envtok", r.Header.Get("Authorization"))
		assert.Equal(t, "project IN (PROJ)", r.URL.Query().Get("jql"))
		_, _ = w.Write([]byte(`{"total":1,"issues":[{"key":"PROJ-1","fields":{"summary":"hi","status":{"name":"Open"}}}]}`))
	}))
	defer server.Close()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("JIRA_URL", server.URL)
	t.Setenv("JIRA_API_TOKEN", "envtok")
	os.Unsetenv("JIRA_PROJECTS_FILTER")

	root := newRootCmd()
	root.SetArgs([]string{"issues", "--project", "PROJ", "--json"})
	require.NoError(t, root.ExecuteContext(context.Background()))
}
