package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TelegramSender posts one-way notifications to the Bot API's
// sendMessage endpoint. Grounded on the same
// original_source/portfolio_manager/telegram_bot/config.py bot_token/
// chat_id surface internal/confirmation.TelegramChannel uses for
// two-way confirmation prompts; this type covers the one-way kinds
// spec.md §6 lists (hedge_buy, hedge_sell, hedge_failure,
// entry_imminent, heartbeat, daily_summary).
type TelegramSender struct {
	botToken   string
	chatID     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewTelegramSender returns a Sender that silently no-ops when botToken
// or chatID is empty, matching the original's disabled-when-unconfigured
// behaviour.
func NewTelegramSender(botToken, chatID string, log zerolog.Logger) *TelegramSender {
	return &TelegramSender{
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log.With().Str("component", "notify.telegram").Logger(),
	}
}

func (t *TelegramSender) enabled() bool { return t.botToken != "" && t.chatID != "" }

// Send posts the formatted message. Per spec.md §6, this is best-effort:
// failures are logged, never returned or retried, and the call is
// already running off the caller's goroutine (see Notifier.Send), so a
// slow or unreachable Telegram never stalls the orchestrator or
// scheduler job that triggered it.
func (t *TelegramSender) Send(ctx context.Context, kind Kind, payload map[string]any) {
	if !t.enabled() {
		return
	}
	text := formatNotification(kind, payload)
	body, _ := json.Marshal(map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.log.Error().Err(err).Str("kind", string(kind)).Msg("failed to build telegram notification request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.log.Error().Err(err).Str("kind", string(kind)).Msg("failed to send telegram notification")
		return
	}
	resp.Body.Close()
}

func formatNotification(kind Kind, payload map[string]any) string {
	var b strings.Builder
	b.WriteString(notificationTitle(kind))
	if msg, ok := payload["message"].(string); ok && msg != "" {
		b.WriteString("\n")
		b.WriteString(escape(msg))
	}
	for k, v := range payload {
		if k == "message" {
			continue
		}
		fmt.Fprintf(&b, "\n%s: %v", escape(k), v)
	}
	return b.String()
}

func notificationTitle(kind Kind) string {
	switch kind {
	case KindHedgeBuy:
		return "<b>Hedge bought</b>"
	case KindHedgeSell:
		return "<b>Hedge exited</b>"
	case KindHedgeFailure:
		return "<b>Hedge action failed</b>"
	case KindEntryImminent:
		return "<b>Entry imminent</b>"
	case KindHeartbeat:
		return "Heartbeat"
	case KindDailySummary:
		return "<b>Daily summary</b>"
	default:
		return string(kind)
	}
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
