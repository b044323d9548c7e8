package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/pterm/pterm"
)

// pageState classifies where the login journey currently is. Evaluated inside
// the page because the SSO gateway bounces through several hosts before any
// Jira markup appears.
const pageStateScript = `() => {
	const host = window.location.hostname.toLowerCase();

	if (host.includes('microsoftonline') || host.includes('login.microsoft')) {
		return 'azure';
	}

	const hasLoginForm = document.querySelector('#login-form') !== null ||
		document.querySelector('input[name="os_username"]') !== null ||
		document.querySelector('input[name="password"]') !== null ||
		document.querySelector('.login-section') !== null ||
		document.querySelector('#login-container') !== null ||
		document.querySelector('form[action*="login"]') !== null;
	if (hasLoginForm) {
		return 'jira-login';
	}

	const hasContent = document.querySelector('#header') !== null ||
		document.querySelector('.aui-header') !== null ||
		document.querySelector('#jira') !== null ||
		document.querySelector('.ghx-board') !== null ||
		document.querySelector('#dashboard') !== null;
	if (hasContent) {
		return 'logged-in';
	}

	return 'waiting';
}`

// Manager drives the interactive browser login and refreshes the cookie
// store. It satisfies the auth package's Refresher.
type Manager struct {
	store    *Store
	jiraURL  string
	headless bool
	timeout  time.Duration
}

// NewManager creates a session manager for the given Jira base URL.
func NewManager(store *Store, jiraURL string) *Manager {
	return &Manager{
		store:   store,
		jiraURL: strings.TrimRight(jiraURL, "/"),
		timeout: 5 * time.Minute,
	}
}

// Refresh implements auth.Refresher by running a full browser login.
func (m *Manager) Refresh(ctx context.Context) error {
	return m.Login(ctx)
}

// Login opens a visible browser window on the Jira base URL, waits for the
// user to get through the SSO and Jira login pages, then captures and
// persists the resulting session cookies.
func (m *Manager) Login(ctx context.Context) error {
	pterm.Info.Printfln("Opening browser for Jira login: %s", m.jiraURL)
	pterm.Println(pterm.Gray("Complete the SSO login, then the Jira login if prompted."))
	pterm.Println()

	if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
		return fmt.Errorf("install playwright: %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("start playwright: %w", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.headless),
	})
	if err != nil {
		return fmt.Errorf("launch chromium: %w", err)
	}
	defer browser.Close()

	browserCtx, err := browser.NewContext()
	if err != nil {
		return fmt.Errorf("create browser context: %w", err)
	}
	defer browserCtx.Close()

	page, err := browserCtx.NewPage()
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}

	if _, err := page.Goto(m.jiraURL); err != nil {
		return fmt.Errorf("navigate to %s: %w", m.jiraURL, err)
	}

	if err := m.waitForLogin(ctx, page); err != nil {
		return err
	}

	// Let redirects and late cookie writes settle before capturing.
	_ = page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	})
	page.WaitForTimeout(2000)

	cookies, err := browserCtx.Cookies()
	if err != nil {
		return fmt.Errorf("read browser cookies: %w", err)
	}

	kept := filterCookies(cookies, m.jiraURL)
	if len(kept) == 0 {
		return fmt.Errorf("login finished but no session cookies were captured for %s", m.jiraURL)
	}

	st := &State{
		SavedAt: time.Now(),
		JiraURL: m.jiraURL,
		Cookies: kept,
	}
	if err := m.store.Save(st); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	pterm.Success.Printfln("Saved %d cookies to %s", len(kept), m.store.Path())
	return nil
}

// waitForLogin polls the page state once a second until the Jira chrome shows
// up, reporting state changes along the way.
func (m *Manager) waitForLogin(ctx context.Context, page playwright.Page) error {
	deadline := time.Now().Add(m.timeout)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastState string
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		result, err := page.Evaluate(pageStateScript)
		if err != nil {
			// Evaluation fails mid-navigation; keep polling.
			continue
		}
		state, _ := result.(string)
		if state == lastState {
			continue
		}
		lastState = state

		switch state {
		case "azure":
			pterm.Println(pterm.Gray("SSO login in progress..."))
		case "jira-login":
			pterm.Println(pterm.Gray("Jira login page - enter your credentials..."))
		case "logged-in":
			pterm.Success.Println("Login successful")
			return nil
		}
	}
	return fmt.Errorf("login timed out after %s", m.timeout)
}

// filterCookies keeps cookies scoped to the Jira host. The SSO round trip
// leaves identity-provider cookies in the jar that have no business being
// replayed against Jira.
func filterCookies(cookies []playwright.Cookie, jiraURL string) []Cookie {
	host := ""
	if u, err := url.Parse(jiraURL); err == nil {
		host = strings.ToLower(u.Hostname())
	}

	var kept []Cookie
	for _, c := range cookies {
		domain := strings.ToLower(c.Domain)
		if (host != "" && strings.Contains(domain, host)) || strings.Contains(domain, "jira") {
			kept = append(kept, Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				HTTPOnly: c.HttpOnly,
				Secure:   c.Secure,
			})
		}
	}
	return kept
}
