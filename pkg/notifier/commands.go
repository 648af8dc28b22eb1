package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"restockbot/pkg/config"
	"restockbot/pkg/logger"

	"go.uber.org/zap"
)

// Command is an operator instruction received over the chat.
type Command string

const (
	// CommandRefresh forces an immediate poll of every tracker.
	CommandRefresh Command = "refresh"
	// CommandCancel aborts an in-flight purchase before its final submit.
	CommandCancel Command = "cancel"
	// CommandShutdown stops the whole bot. Emitted only after the
	// /shutdown + /headshot confirmation pair.
	CommandShutdown Command = "shutdown"
)

// shutdownConfirmWindow bounds how long a /shutdown stays armed waiting
// for its /headshot confirmation.
const shutdownConfirmWindow = time.Minute

type telegramChat struct {
	ID int64 `json:"id"`
}

type inboundMessage struct {
	Text string       `json:"text"`
	Chat telegramChat `json:"chat"`
}

type telegramUpdate struct {
	UpdateID int64           `json:"update_id"`
	Message  *inboundMessage `json:"message"`
}

// CommandListener long-polls the bot's update feed and turns recognized
// chat commands into events on Commands(). Messages from chats other than
// the configured one are ignored.
type CommandListener struct {
	config     *config.TelegramConfig
	notifier   *TelegramNotifier
	httpClient *http.Client

	offset   int64
	armedAt  time.Time
	commands chan Command
}

func NewCommandListener(cfg *config.TelegramConfig, n *TelegramNotifier) *CommandListener {
	return &CommandListener{
		config:   cfg,
		notifier: n,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		commands: make(chan Command, 8),
	}
}

// Commands returns the stream of confirmed operator commands.
func (l *CommandListener) Commands() <-chan Command {
	return l.commands
}

// Run polls for updates until the context is cancelled. Before the first
// poll it discards everything queued while the bot was offline, so stale
// commands from a previous run are never replayed.
func (l *CommandListener) Run(ctx context.Context) {
	if !l.config.Enabled || l.config.BotToken == "" {
		logger.Info("telegram command listener disabled")
		return
	}

	if err := l.flushBacklog(ctx); err != nil {
		logger.Warn("could not flush stale telegram updates", zap.Error(err))
	}

	l.notifier.Notify("At your service. Commands available:",
		"/refresh - poll all categories now",
		"/cancel - abort the purchase in progress",
		"/shutdown - stop the bot (asks for confirmation)")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := l.getUpdates(ctx, 60)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("telegram update poll failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			l.offset = u.UpdateID + 1
			l.handle(u)
		}
	}
}

// flushBacklog asks for the newest queued update only and advances the
// offset past it, dropping whatever accumulated while offline.
func (l *CommandListener) flushBacklog(ctx context.Context) error {
	updates, err := l.fetch(ctx, "-1", 0)
	if err != nil {
		return err
	}
	if len(updates) > 0 {
		l.offset = updates[len(updates)-1].UpdateID + 1
		logger.Info("discarded stale telegram updates",
			zap.Int64("next_offset", l.offset))
	}
	return nil
}

func (l *CommandListener) getUpdates(ctx context.Context, timeout int) ([]telegramUpdate, error) {
	return l.fetch(ctx, strconv.FormatInt(l.offset, 10), timeout)
}

func (l *CommandListener) fetch(ctx context.Context, offset string, timeout int) ([]telegramUpdate, error) {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/getUpdates?offset=%s&timeout=%d",
		l.config.BotToken, offset, timeout)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to poll updates: %w", err)
	}
	defer resp.Body.Close()

	var apiResp struct {
		OK          bool             `json:"ok"`
		Description string           `json:"description,omitempty"`
		Result      []telegramUpdate `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode updates: %w", err)
	}
	if !apiResp.OK {
		return nil, fmt.Errorf("telegram API error: %s", apiResp.Description)
	}
	return apiResp.Result, nil
}

func (l *CommandListener) handle(u telegramUpdate) {
	if u.Message == nil {
		return
	}
	if chatID := strconv.FormatInt(u.Message.Chat.ID, 10); chatID != l.config.ChatID {
		logger.Warn("ignoring command from unknown chat", zap.String("chat_id", chatID))
		return
	}

	text := strings.TrimSpace(u.Message.Text)
	logger.Info("telegram command received", zap.String("text", text))

	switch text {
	case "/hello":
		l.notifier.Notify("Hello! Still here, still watching.")
	case "/refresh":
		l.emit(CommandRefresh)
	case "/cancel":
		l.emit(CommandCancel)
	case "/shutdown":
		l.armedAt = time.Now()
		l.notifier.Notify("Are you sure? Send /headshot within a minute to confirm the shutdown.")
	case "/headshot":
		if time.Since(l.armedAt) > shutdownConfirmWindow || l.armedAt.IsZero() {
			l.notifier.Notify("Nothing to confirm. Send /shutdown first.")
			return
		}
		l.armedAt = time.Time{}
		l.emit(CommandShutdown)
	default:
		if strings.HasPrefix(text, "/") {
			l.notifier.Notify(fmt.Sprintf("Unknown command %s.", text))
		}
	}
}

func (l *CommandListener) emit(cmd Command) {
	select {
	case l.commands <- cmd:
	default:
		logger.Warn("command dropped, handler backlog full", zap.String("command", string(cmd)))
	}
}
