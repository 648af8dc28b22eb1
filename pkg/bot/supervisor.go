package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"restockbot/pkg/browser"
	"restockbot/pkg/config"
	"restockbot/pkg/logger"
	"restockbot/pkg/notifier"
	"restockbot/pkg/purchase"
	"restockbot/pkg/tracker"
)

// reconnectBackoff paces browser session rebuilds after a crash.
const reconnectBackoff = 10 * time.Second

// Supervisor owns the shared browser session and every long-lived worker:
// the category trackers, the purchase orchestrator, the login manager and
// the command loop. It restarts the session when the browser dies and
// relays operator commands to the right component.
type Supervisor struct {
	config    *config.Config
	notifier  *notifier.TelegramNotifier
	listener  *notifier.CommandListener
	registry  *tracker.Registry
	purchases *purchase.Orchestrator
	login     *purchase.LoginManager

	sessionMu sync.Mutex
	session   *browser.Session

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

func NewSupervisor(cfg *config.Config, n *notifier.TelegramNotifier) *Supervisor {
	s := &Supervisor{
		config:   cfg,
		notifier: n,
		listener: notifier.NewCommandListener(cfg.Telegram, n),
		registry: tracker.NewRegistry(),
		shutdown: make(chan struct{}),
	}
	// The browser session arrives in Run; until then both components hold
	// a nil driver and are not used.
	s.purchases = purchase.NewOrchestrator(nil, nil, n, purchase.NewPurchasedSet(), cfg.Bot.PurchaseSame)
	s.purchases.SetOnSuccess(s.stopTrackerAfterPurchase)
	s.login = purchase.NewLoginManager(nil, n, cfg.Bot.Credentials, s.baseURL())
	return s
}

// Run brings the bot up and blocks until the context is cancelled or a
// confirmed shutdown command arrives. All teardown happens before return.
func (s *Supervisor) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	session, err := s.newSession(runCtx)
	if err != nil {
		return err
	}
	s.setSession(session)
	s.purchases.Reconnect(session, session)
	s.login.Reconnect(session)

	purchasing := s.purchaseWanted()
	if err := s.ensureLogin(runCtx, purchasing); err != nil {
		session.Close()
		return err
	}

	s.startTrackers(runCtx, session, purchasing)

	go s.listener.Run(runCtx)
	go s.watchSession(runCtx)
	go s.commandLoop(runCtx)

	select {
	case <-runCtx.Done():
	case <-s.shutdown:
	}

	s.registry.StopAll()
	if sess := s.currentSession(); sess != nil {
		sess.Close()
	}
	logger.Info("supervisor stopped")
	return nil
}

// Shutdown triggers the same teardown as a confirmed /shutdown command.
func (s *Supervisor) Shutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdown) })
}

// Registry exposes the trackers for the status API.
func (s *Supervisor) Registry() *tracker.Registry { return s.registry }

// Purchases exposes the orchestrator for the status API.
func (s *Supervisor) Purchases() *purchase.Orchestrator { return s.purchases }

// ensureLogin authenticates the session when any category can purchase.
// A failure is fatal for the run: the login manager has already told the
// operator the bot stopped, so the supervisor tears down rather than
// continuing watch-only.
func (s *Supervisor) ensureLogin(ctx context.Context, purchasing bool) error {
	if !purchasing {
		return nil
	}
	return s.login.Login(ctx)
}

// startTrackers builds and launches one tracker per category. Start blocks
// in its polling loop, so every tracker gets its own goroutine; the caller
// must not be held up by the first category.
func (s *Supervisor) startTrackers(ctx context.Context, driver browser.Driver, purchasing bool) {
	for _, cat := range s.config.Categories {
		t := tracker.New(cat, tracker.Options{
			Driver:    driver,
			Notifier:  s.notifier,
			Purchaser: s.purchases,
			Notify:    s.config.Bot.Notify,
			Purchase:  purchasing && s.config.Bot.Purchase,
		})
		s.registry.Add(t)
		go t.Start(ctx)
		logger.Info("tracker started", zap.String("category", cat.Name))
	}
}

func (s *Supervisor) commandLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.listener.Commands():
			switch cmd {
			case notifier.CommandRefresh:
				logger.Info("manual refresh requested")
				s.registry.RefreshAll(ctx)
			case notifier.CommandCancel:
				s.purchases.Cancel()
			case notifier.CommandShutdown:
				s.notifier.Notify("Too bad! Shutting down in 5 seconds...")
				select {
				case <-ctx.Done():
				case <-time.After(5 * time.Second):
				}
				s.Shutdown()
				return
			}
		}
	}
}

// watchSession rebuilds the browser session when Chrome dies and rewires
// every component onto the fresh one.
func (s *Supervisor) watchSession(ctx context.Context) {
	for {
		sess := s.currentSession()
		if sess == nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-sess.Disconnected():
		}

		logger.Error("browser session lost, rebuilding")
		s.notifier.Notify("Browser crashed, restarting the session...")
		sess.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectBackoff):
			}

			fresh, err := s.newSession(ctx)
			if err != nil {
				logger.Error("session rebuild failed, retrying", zap.Error(err))
				continue
			}

			s.setSession(fresh)
			s.registry.ReconnectAll(fresh)
			s.purchases.Reconnect(fresh, fresh)
			s.login.Reconnect(fresh)

			if s.purchaseWanted() {
				if err := s.login.Login(ctx); err != nil {
					logger.Error("re-login failed after session rebuild, shutting down", zap.Error(err))
					s.Shutdown()
					return
				}
			}
			s.notifier.Notify("Browser session restored, trackers resuming.")
			break
		}
	}
}

// stopTrackerAfterPurchase halts a category's polling once its purchase
// completed, unless the category wants repeated buys.
func (s *Supervisor) stopTrackerAfterPurchase(category string) {
	t := s.registry.Get(category)
	if t == nil {
		return
	}
	t.Stop()
	logger.Info("tracker stopped after completed purchase", zap.String("category", category))
	s.notifier.Notify("'" + category + " tracker' - Purchase done, tracker stopped.")
}

func (s *Supervisor) newSession(ctx context.Context) (*browser.Session, error) {
	b := s.config.Browser
	sess, err := browser.NewSession(ctx, browser.Options{
		Headless:             b.Headless,
		ExecPath:             b.ExecPath,
		NavigationsPerMinute: b.NavigationsPerMinute,
	})
	if err != nil {
		return nil, errors.Join(browser.ErrSessionStart, err)
	}
	return sess, nil
}

func (s *Supervisor) setSession(sess *browser.Session) {
	s.sessionMu.Lock()
	s.session = sess
	s.sessionMu.Unlock()
}

func (s *Supervisor) currentSession() *browser.Session {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	return s.session
}

// purchaseWanted reports whether any category would ever trigger a buy.
func (s *Supervisor) purchaseWanted() bool {
	if !s.config.Bot.Purchase {
		return false
	}
	for _, cat := range s.config.Categories {
		if cat.PurchaseEnabled() {
			return true
		}
	}
	return false
}

// baseURL derives the shop root from the first category URL.
func (s *Supervisor) baseURL() string {
	for _, cat := range s.config.Categories {
		if u := tracker.BaseURL(cat.URL); u != "" {
			return u
		}
	}
	return ""
}
