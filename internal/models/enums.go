package models

// UnknownIcon is rendered for kinds and statuses without a mapping
const UnknownIcon = "❓"

// Kind is the Mercury transaction category
type Kind string

const (
	KindInternalTransfer      Kind = "internalTransfer"
	KindOutgoingPayment       Kind = "outgoingPayment"
	KindIncomingDomesticWire  Kind = "incomingDomesticWire"
	KindCreditCardTransaction Kind = "creditCardTransaction"
	KindOther                 Kind = "other"
)

var kindIcons = map[Kind]string{
	KindInternalTransfer:      "🔁",
	KindOutgoingPayment:       "📤",
	KindIncomingDomesticWire:  "🏦",
	KindCreditCardTransaction: "🧾",
	KindOther:                 "🧩",
}

// Icon returns the emoji for the kind, or UnknownIcon
func (k Kind) Icon() string {
	if icon, ok := kindIcons[k]; ok {
		return icon
	}
	return UnknownIcon
}

func (k Kind) String() string {
	if k == "" {
		return "unknown"
	}
	return string(k)
}

// Status is the Mercury transaction status
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

var statusIcons = map[Status]string{
	StatusPending:   "⏳",
	StatusSent:      "✅",
	StatusCancelled: "🚫",
	StatusFailed:    "❌",
}

// Icon returns the emoji for the status, or UnknownIcon
func (s Status) Icon() string {
	if icon, ok := statusIcons[s]; ok {
		return icon
	}
	return UnknownIcon
}

// Direction is the flow of money relative to the account
type Direction int

const (
	Outbound Direction = iota
	Inbound
)

// Icon returns the marker that leads a message
func (d Direction) Icon() string {
	if d == Inbound {
		return "🟢💰"
	}
	return "🔴💸"
}

// Phrase returns the human-readable verb phrase
func (d Direction) Phrase() string {
	if d == Inbound {
		return "received from"
	}
	return "sent to"
}

// Color returns the Slack attachment color
func (d Direction) Color() string {
	if d == Inbound {
		return "#2eb886"
	}
	return "#d50200"
}

func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}
