// Package telegram pushes trade notifications to a chat. Delivery is best
// effort: a failed or disabled notifier never affects trading.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/fuggle07/paper-trader/internal/config"
	"github.com/fuggle07/paper-trader/internal/events"
	"github.com/fuggle07/paper-trader/internal/logger"
)

type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *logger.Logger
}

// NewNotifier returns nil (not an error) when telegram is disabled, so
// callers can wire it unconditionally.
func NewNotifier(cfg *config.Config, log *logger.Logger) (*Notifier, error) {
	if !cfg.Telegram.Enabled {
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}

	log.Info("telegram notifier ready", "bot", bot.Self.UserName)
	return &Notifier{bot: bot, chatID: cfg.Telegram.ChatID, log: log}, nil
}

// Consume reads the event stream and relays the interesting ones until the
// channel closes or ctx is cancelled. Run it in its own goroutine.
func (n *Notifier) Consume(ctx context.Context, ch <-chan events.Event) {
	if n == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if e.Type == events.TypeHeartbeat {
				n.log.Debug("cycle heartbeat", "at", e.At)
				continue
			}
			if msg := format(e); msg != "" {
				n.send(msg)
			}
		}
	}
}

func format(e events.Event) string {
	switch e.Type {
	case events.TypeFill:
		return fmt.Sprintf("✅ %s %s x%s @ $%s (%s)",
			e.Action, e.Ticker, e.Qty.String(), e.Price.StringFixed(2), e.Detail)
	case events.TypeOrderPlaced:
		return fmt.Sprintf("📤 %s %s x%s @ $%s [%s]",
			e.Action, e.Ticker, e.Qty.String(), e.Price.StringFixed(2), e.Detail)
	case events.TypeRejected:
		return fmt.Sprintf("🚫 %s %s rejected: %s", e.Action, e.Ticker, e.Detail)
	case events.TypeHedge:
		return fmt.Sprintf("🛡 hedge %s (%s): %s", e.Action, e.Ticker, e.Detail)
	case events.TypeCritical:
		return fmt.Sprintf("🔥 CRITICAL %s: %s", e.Ticker, e.Detail)
	default:
		// Heartbeats and the rest stay out of the chat.
		return ""
	}
}

func (n *Notifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.log.Error("telegram send failed", "error", err)
	}
}
