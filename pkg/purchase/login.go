package purchase

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"restockbot/pkg/browser"
	"restockbot/pkg/config"
	"restockbot/pkg/logger"
)

const (
	loginPath        = "/login"
	maxLoginAttempts = 3
	loginRetryDelay  = 5 * time.Second
	// postSubmitWait gives the shop time to redirect after the credentials
	// are submitted; success is judged purely by where the page ends up.
	postSubmitWait = 10 * time.Second
)

// Notifier is the outbound reporting surface for purchase-relevant events.
type Notifier interface {
	Notify(title string, lines ...string)
}

// LoginManager authenticates the shared browser session before any
// purchase-enabled tracker starts. Login failures are fatal for the system:
// without a session there is nothing to purchase with.
type LoginManager struct {
	driver   browser.Driver
	notifier Notifier
	creds    *config.Credentials
	baseURL  string
	attempts int
}

func NewLoginManager(driver browser.Driver, notifier Notifier, creds *config.Credentials, baseURL string) *LoginManager {
	return &LoginManager{
		driver:   driver,
		notifier: notifier,
		creds:    creds,
		baseURL:  baseURL,
	}
}

// Reconnect points the manager at a rebuilt session so a re-login can run
// after driver recovery.
func (m *LoginManager) Reconnect(driver browser.Driver) {
	m.driver = driver
}

// Login signs the session in, retrying up to the attempt ceiling with a
// fixed delay. Missing credentials fail immediately. Any error return is
// fatal for the overall system and has already been mirrored to the
// notification channel.
func (m *LoginManager) Login(ctx context.Context) error {
	if m.creds == nil || m.creds.Email == "" || m.creds.Password == "" {
		logger.Error("login failed: credentials not configured")
		m.notify("Login failed: credentials missing, check PCC_USER / PCC_PASS. Bot stopped.")
		return ErrMissingCredentials
	}

	for {
		ok, err := m.attempt(ctx)
		if err != nil {
			return err
		}
		if ok {
			m.attempts = 0
			logger.Info("login successful")
			return nil
		}

		m.attempts++
		if m.attempts >= maxLoginAttempts {
			logger.Error("login failed, attempt ceiling reached", zap.Int("attempts", m.attempts))
			m.notify("Login failed repeatedly, check the credentials. Bot stopped.")
			return fmt.Errorf("%w after %d attempts", ErrLoginFailed, m.attempts)
		}

		logger.Warn("login attempt failed, retrying",
			zap.Int("attempt", m.attempts),
			zap.Duration("delay", loginRetryDelay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(loginRetryDelay):
		}
	}
}

// attempt runs one full login flow. The bool result is the success verdict;
// a non-nil error is an environment failure (context cancelled, no page)
// that retrying cannot fix.
func (m *LoginManager) attempt(ctx context.Context) (bool, error) {
	page, err := m.driver.NewPage(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to open login page: %w", err)
	}
	defer page.Close()

	loginURL := m.baseURL + loginPath
	logger.Info("attempting login", zap.String("url", loginURL))

	if err := page.Navigate(ctx, loginURL); err != nil {
		logger.Warn("login page navigation failed", zap.Error(err))
		return false, nil
	}

	if err := sleepRandom(ctx, time.Second, 3*time.Second); err != nil {
		return false, err
	}

	// The login form has shipped with either an email or a username field.
	if err := page.Click(ctx, "input#email"); err != nil {
		if err := page.Click(ctx, "input#username"); err != nil {
			logger.Warn("login form field not found", zap.Error(err))
			return false, nil
		}
	}

	if err := page.TypeHuman(ctx, strings.TrimSpace(m.creds.Email)); err != nil {
		return false, nil
	}
	if err := sleepRandom(ctx, 500*time.Millisecond, 2*time.Second); err != nil {
		return false, err
	}
	if err := page.PressKey(ctx, browser.KeyTab); err != nil {
		return false, nil
	}
	if err := page.TypeHuman(ctx, strings.TrimSpace(m.creds.Password)); err != nil {
		return false, nil
	}
	if err := sleepRandom(ctx, 500*time.Millisecond, 2*time.Second); err != nil {
		return false, err
	}
	if err := page.PressKey(ctx, browser.KeyEnter); err != nil {
		return false, nil
	}

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-time.After(postSubmitWait):
	}

	// Leaving the login URL is the success signal; a rejected login lands
	// back on the same form.
	loc, err := page.Location(ctx)
	if err != nil {
		logger.Warn("could not read post-login location", zap.Error(err))
		return false, nil
	}
	return !strings.Contains(loc, loginPath), nil
}

func (m *LoginManager) notify(title string) {
	if m.notifier != nil {
		m.notifier.Notify(title)
	}
}

func sleepRandom(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
