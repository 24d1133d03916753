// Package notifier delivers outbound notifications to an operations
// Telegram chat. Delivery is fire-and-forget: failures are logged and
// never propagate to the mutation that triggered them.
package notifier

import (
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"crisisintel/internal/config"
)

// Telegram pushes notification events to a single ops chat.
type Telegram struct {
	api       *tgbotapi.BotAPI
	opsChatID int64
	logger    *zap.Logger
}

// NewTelegram creates the Telegram notifier. It returns (nil, nil) when
// notifications are disabled or no token is configured; a nil *Telegram
// is safe to use and discards everything.
func NewTelegram(cfg *config.Config, logger *zap.Logger) (*Telegram, error) {
	if !cfg.Notifications.Enabled || cfg.Notifications.TelegramBotToken == "" {
		logger.Info("Telegram notifier is disabled (notifications.enabled=false or token is empty)")
		return nil, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Notifications.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram notifier authorized", zap.String("username", botAPI.Self.UserName))

	return &Telegram{
		api:       botAPI,
		opsChatID: cfg.Notifications.OpsChatID,
		logger:    logger,
	}, nil
}

// Notify formats the event and sends it to the ops chat.
func (t *Telegram) Notify(userID int64, ntype string, payload map[string]any) {
	if t == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] user=%d", ntype, userID)
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, payload[k])
	}

	msg := tgbotapi.NewMessage(t.opsChatID, sb.String())
	if _, err := t.api.Send(msg); err != nil {
		t.logger.Warn("Failed to send Telegram notification", zap.String("type", ntype), zap.Error(err))
	}
}
