package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cheque-bot/internal/domain"
	"cheque-bot/pkg/storage"
)

func formatResult(profile string, result *domain.Result) string {
	return fmt.Sprintf(
		"*✅ Cheque activated*\n\nBot: `%s`\nReceived: `%s BTC`\nWorth: `%s RUB`",
		profile, formatBTC(result.BTC), formatRUB(result.RUB),
	)
}

func askChequeText(p domain.BotProfile) string {
	return fmt.Sprintf(
		"*🎟 Redeem cheque*\n\nBot: %s\nSend the cheque link or the code (starts with `%s`):",
		escapeMarkdown(p.Title), p.CodePrefix,
	)
}

func formatRate(btc, rub float64) string {
	return fmt.Sprintf("*💱 Rate*\n\n`%s BTC` = `%s RUB`", formatBTC(btc), formatRUB(rub))
}

// formatError turns a usecase error into an operator-facing message
func formatError(err error) string {
	var cerr *domain.ChequeError
	switch {
	case errors.As(err, &cerr) && cerr.Outcome == domain.OutcomeAlreadyUsed:
		return fmt.Sprintf("*⚠️ Already used*\n\nThe cheque was activated by someone else (`%s`).", cerr.Profile)
	case errors.As(err, &cerr):
		return fmt.Sprintf("*❓ Unrecognized reply*\n\n`%s` answered:\n%s", cerr.Profile, quote(cerr.Reply))
	case errors.Is(err, domain.ErrInvalidCheque):
		return "❌ That does not look like a cheque code or link."
	case errors.Is(err, domain.ErrUnknownProfile):
		return "❌ Unknown bot. Paste a full cheque link or pick a bot from the menu."
	case errors.Is(err, domain.ErrInvalidAmount):
		return "❌ Amount must be a non-negative number, e.g. `0.0015`."
	case errors.Is(err, domain.ErrTickerUnavailable), errors.Is(err, domain.ErrTickerMalformed):
		return fmt.Sprintf("*⚠️ Rate unavailable*\n\n`%v`", err)
	default:
		return fmt.Sprintf("❌ Error: `%v`", err)
	}
}

func formatHistory(entries []storage.HistoryEntry) string {
	if len(entries) == 0 {
		return "📭 No redemptions yet."
	}

	var text strings.Builder
	text.WriteString("*🧾 Latest redemptions:*\n\n")
	for i, e := range entries {
		text.WriteString(fmt.Sprintf("%d. %s `%s` %s `%s`", i+1, outcomeIcon(e), e.Profile, e.At.Format(time.DateTime), e.Code))
		if e.BTC > 0 {
			text.WriteString(fmt.Sprintf(" %s BTC", formatBTC(e.BTC)))
		}
		if e.RUB > 0 {
			text.WriteString(fmt.Sprintf(" ≈ %s RUB", formatRUB(e.RUB)))
		}
		text.WriteString("\n")
	}
	return text.String()
}

func formatProfiles(profiles []domain.BotProfile) string {
	var text strings.Builder
	text.WriteString("*🤖 Supported bots:*\n\n")
	for _, p := range profiles {
		text.WriteString(fmt.Sprintf("• %s (`%s`) @%s, codes start with `%s`\n", escapeMarkdown(p.Title), p.Name, escapeMarkdown(p.Handle), p.CodePrefix))
	}
	return text.String()
}

func outcomeIcon(e storage.HistoryEntry) string {
	if e.Error != "" && e.Outcome == domain.OutcomeRedeemed.String() {
		return "⚠️"
	}
	switch e.Outcome {
	case domain.OutcomeRedeemed.String():
		return "✅"
	case domain.OutcomeAlreadyUsed.String():
		return "🚫"
	default:
		return "❓"
	}
}

// parseBTC accepts both "0.5" and "0,5"
func parseBTC(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, domain.ErrInvalidAmount
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
	}
	return v, nil
}

func formatBTC(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatRUB(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func quote(s string) string {
	if s == "" {
		return "_(no reply)_"
	}
	return "```\n" + strings.ReplaceAll(s, "```", "'''") + "\n```"
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
