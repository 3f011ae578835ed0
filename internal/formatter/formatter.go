// Package formatter renders Mercury transactions as Slack mrkdwn messages.
package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/mercury-notifier/internal/models"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// TimeLayout renders timestamps like "4:00 AM on January 01, 2024"
const TimeLayout = "3:04 PM on January 02, 2006"

// Message is a rendered transaction ready for a sink
type Message struct {
	Account       string
	TransactionID string
	Direction     models.Direction
	Amount        string
	Text          string
}

// Formatter converts transactions into messages
type Formatter struct {
	loc      *time.Location
	accounts map[string]string // account id -> logical name
}

// New creates a formatter that renders times in loc and resolves
// counterparties against the configured accounts.
func New(accounts []models.Account, loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}
	return &Formatter{loc: loc, accounts: names}
}

// Format renders one transaction processed under the given account name
func (f *Formatter) Format(account string, tx models.Transaction) Message {
	dir := tx.Direction()
	amount := FormatMoney(tx.Amount)

	header := fmt.Sprintf("%s %s %s *%s*", dir.Icon(), amount, dir.Phrase(), f.counterparty(tx))
	if account != "" {
		header += fmt.Sprintf(" · `%s`", account)
	}

	lines := []string{
		header,
		fmt.Sprintf("%s `%s` • %s `Status: %s`", tx.Kind.Icon(), tx.Kind, tx.Status.Icon(), tx.Status),
		"⏰ " + f.timestamp(tx.CreatedAt),
	}
	if tx.Note != "" {
		lines = append(lines, "📝 "+tx.Note)
	}
	if tx.DashboardLink != "" {
		lines = append(lines, fmt.Sprintf("🔗 <%s|View on Mercury>", tx.DashboardLink))
	}

	return Message{
		Account:       account,
		TransactionID: tx.ID,
		Direction:     dir,
		Amount:        amount,
		Text:          strings.Join(lines, "\n"),
	}
}

func (f *Formatter) counterparty(tx models.Transaction) string {
	if name, ok := f.accounts[tx.CounterpartyID]; ok && tx.CounterpartyID != "" {
		return name
	}
	if tx.CounterpartyName != "" {
		return tx.CounterpartyName
	}
	return "Unknown"
}

// timestamp falls back to the raw value when it cannot be parsed
func (f *Formatter) timestamp(raw string) string {
	t, err := models.ParseTimestamp(raw)
	if err != nil {
		return raw
	}
	return t.In(f.loc).Format(TimeLayout)
}

// FormatMoney renders the absolute amount as US currency, e.g. "$1,234.50"
func FormatMoney(d decimal.Decimal) string {
	rounded := d.Abs().Round(2)
	_, frac, _ := strings.Cut(rounded.StringFixed(2), ".")
	return "$" + humanize.Comma(rounded.IntPart()) + "." + frac
}
