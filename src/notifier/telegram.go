// Telegram checkpoints for unattended runs. Delivery failures are logged and
// swallowed so a notifier outage never interrupts a session.
package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"

	"pumpscanner/src/model"
	"pumpscanner/src/trader"
)

const telegramBaseURL = "https://api.telegram.org"

// Notifier posts session checkpoints to a Telegram chat. A nil Notifier and
// an unconfigured one are both safe to call.
type Notifier struct {
	client *resty.Client
	chatID string
	token  string
}

func New() *Notifier {
	config := GetConfig()

	client := resty.New().
		SetBaseURL(telegramBaseURL).
		SetTimeout(time.Duration(config.TimeoutSec) * time.Second)

	return &Notifier{
		client: client,
		chatID: config.TelegramChatID,
		token:  config.TelegramBotToken,
	}
}

func (n *Notifier) enabled() bool {
	return n != nil && n.token != "" && n.chatID != ""
}

func (n *Notifier) send(ctx context.Context, text string) {
	if !n.enabled() {
		return
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id": n.chatID,
			"text":    text,
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", n.token))

	if err != nil {
		logger.WithError(err).Warn("Telegram delivery failed")
		return
	}

	if resp.IsError() {
		logger.WithFields(map[string]interface{}{
			"status": resp.StatusCode(),
			"body":   resp.String(),
		}).Warn("Telegram rejected message")
	}
}

// SessionStarted echoes the effective settings so the operator can confirm
// what this run will do.
func (n *Notifier) SessionStarted(ctx context.Context, boundary time.Time, settings map[string]string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Scan session started, boundary %s\n", boundary.Format("2006-01-02 15:04"))
	for key, value := range settings {
		fmt.Fprintf(&b, "%s: %s\n", key, value)
	}
	n.send(ctx, b.String())
}

// Survivors reports the ranked candidates and their allocations.
func (n *Notifier) Survivors(ctx context.Context, ranked []model.RankedCandidate, allocations []model.Allocation) {
	if len(ranked) == 0 {
		n.send(ctx, "Scan finished: no instruments survived the filters")
		return
	}

	notionals := make(map[string]string, len(allocations))
	for _, a := range allocations {
		if a.Skipped {
			notionals[a.Symbol] = "skipped (" + a.SkipReason + ")"
			continue
		}
		notionals[a.Symbol] = a.Notional.StringFixed(0)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Scan finished: %d candidates\n", len(ranked))
	for i, c := range ranked {
		fmt.Fprintf(&b, "%d. %s price %s%% volume %s%%",
			i+1, c.Symbol,
			c.PriceChangePct.StringFixed(2),
			c.VolumeChangePct.StringFixed(2))
		if notional, ok := notionals[c.Symbol]; ok {
			fmt.Fprintf(&b, " buy %s", notional)
		}
		b.WriteByte('\n')
	}
	n.send(ctx, b.String())
}

// SessionClosed reports the realized result once every position is closed.
func (n *Notifier) SessionClosed(ctx context.Context, summary trader.SessionSummary) {
	if summary.TradeCount == 0 {
		n.send(ctx, "Session closed: no trades realized")
		return
	}

	text := fmt.Sprintf(
		"Session closed: %d trades\nbuy total %s\nsell total %s\nprofit %s (%s%%)",
		summary.TradeCount,
		summary.TotalBuyNotional.StringFixed(0),
		summary.TotalSellNotional.StringFixed(0),
		summary.ProfitAmount.StringFixed(0),
		summary.ProfitPct.StringFixed(2),
	)
	n.send(ctx, text)
}
