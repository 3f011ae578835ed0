package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a Mercury transaction record
type Transaction struct {
	ID               string          `json:"id"`
	Amount           decimal.Decimal `json:"amount"`
	CreatedAt        string          `json:"createdAt"`
	CounterpartyID   string          `json:"counterpartyId"`
	CounterpartyName string          `json:"counterpartyName"`
	Kind             Kind            `json:"kind"`
	Status           Status          `json:"status"`
	Note             string          `json:"note,omitempty"`
	DashboardLink    string          `json:"dashboardLink,omitempty"`
}

// localLayout is ISO-8601 without a zone offset
const localLayout = "2006-01-02T15:04:05.999999999"

// ParseTimestamp reads an ISO-8601 timestamp. Values without an offset are taken as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err == nil {
		return t, nil
	}
	if t, localErr := time.Parse(localLayout, raw); localErr == nil {
		return t, nil
	}
	return time.Time{}, err
}

// CreatedTime parses CreatedAt with ParseTimestamp
func (t Transaction) CreatedTime() (time.Time, error) {
	return ParseTimestamp(t.CreatedAt)
}

// Direction reports whether money came in or went out
func (t Transaction) Direction() Direction {
	if t.Amount.IsPositive() {
		return Inbound
	}
	return Outbound
}
