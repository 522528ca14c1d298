// Package telegram delivers notifications to a Telegram chat. Send-only:
// the bot never polls for updates.
package telegram

import (
	"context"
	"errors"
	"html"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"notifyd/internal/notification"
	logx "notifyd/pkg/logx"
)

// Telegram caps message text at 4096 runes; stay under it with headroom.
const textLimit = 4000

type Config struct {
	Token  string
	ChatID int64

	// Timeout bounds each API call. Zero means 8s.
	Timeout time.Duration
}

type Notifier struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

func New(cfg Config, log logx.Logger) (*Notifier, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Client: &http.Client{Timeout: cfg.Timeout},
	})
	if err != nil {
		return nil, err
	}
	return &Notifier{cfg: cfg, log: log, bot: b}, nil
}

func (n *Notifier) Send(ctx context.Context, title, message string, _ *notification.SendOptions) error {
	if ctx != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	_, err := n.bot.Send(&tele.Chat{ID: n.cfg.ChatID}, formatText(title, message), &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	})
	if err != nil {
		n.log.Warn("telegram send failed", logx.Err(err))
	}
	return err
}

func (n *Notifier) Available() bool { return n.bot != nil }

func (n *Notifier) ID() string                          { return "telegram" }
func (n *Notifier) Name() string                        { return "Telegram" }
func (n *Notifier) SupportedTypes() []notification.Type { return nil }
func (n *Notifier) CanHandle(notification.Request) bool { return true }

// Cancel is a no-op: delivered messages are not tracked for deletion.
func (n *Notifier) Cancel(string) bool { return false }

func formatText(title, message string) string {
	var b strings.Builder
	if title != "" {
		b.WriteString("<b>")
		b.WriteString(html.EscapeString(title))
		b.WriteString("</b>")
	}
	if message != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(html.EscapeString(message))
	}
	out := b.String()
	if rs := []rune(out); len(rs) > textLimit {
		out = string(rs[:textLimit])
	}
	return out
}
