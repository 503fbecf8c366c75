package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The auction backend expects plain JSON numbers for money.
	decimal.MarshalJSONWithoutQuotes = true
}

// ID is a server-assigned identifier. The backend sends numeric ids; the console
// treats them as opaque strings but writes numeric ids back as numbers.
type ID string

func (id ID) String() string { return string(id) }

// Numeric reports whether the id is a base-10 integer.
func (id ID) Numeric() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

// MarshalJSON writes numeric ids as JSON numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, ok := id.Numeric(); ok {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts both numbers and strings.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a number or string: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Role gates which views and actions a session may reach.
type Role string

const (
	RoleBidder Role = "BIDDER"
	RoleSeller Role = "SELLER"
	RoleAdmin  Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleBidder, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// ParseRole normalises a role string coming from the server or the operator.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Session is the authenticated identity of the console's single operator.
type Session struct {
	Token    string `json:"-"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	UserID   ID     `json:"userId,omitempty"`
}

// Auction is a server-owned listing. CurrentPrice is null until the first bid.
type Auction struct {
	ID                ID                  `json:"id"`
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	StartPrice        decimal.Decimal     `json:"startPrice"`
	CurrentPrice      decimal.NullDecimal `json:"currentPrice"`
	ImageURL          *string             `json:"imageUrl"`
	Active            bool                `json:"active"`
	SellerID          ID                  `json:"sellerId,omitempty"`
	CreatedByUsername string              `json:"createdByUsername,omitempty"`
	LastBidTime       string              `json:"lastBidTime,omitempty"`
}

// Price returns the current price, falling back to the start price before any bid.
func (a Auction) Price() decimal.Decimal {
	if a.CurrentPrice.Valid && a.CurrentPrice.Decimal.GreaterThan(a.StartPrice) {
		return a.CurrentPrice.Decimal
	}
	return a.StartPrice
}

// Bid is an immutable bid event, either from bid history or from the live channel.
type Bid struct {
	ID         ID              `json:"id,omitempty"`
	AuctionID  ID              `json:"auctionId"`
	BidderName string          `json:"bidderName"`
	Amount     decimal.Decimal `json:"amount"`
	Timestamp  string          `json:"timestamp,omitempty"`
}

// bidWire accepts the field names used by both the REST history endpoint and the
// live topic (username/price).
type bidWire struct {
	ID         ID               `json:"id"`
	AuctionID  ID               `json:"auctionId"`
	BidderName string           `json:"bidderName"`
	Username   string           `json:"username"`
	Bidder     string           `json:"bidder"`
	Amount     *decimal.Decimal `json:"amount"`
	Price      *decimal.Decimal `json:"price"`
	Timestamp  json.RawMessage  `json:"timestamp"`
}

// UnmarshalJSON decodes a bid from any of the backend's bid shapes.
// A missing amount decodes to zero.
func (b *Bid) UnmarshalJSON(data []byte) error {
	var w bidWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*b = Bid{ID: w.ID, AuctionID: w.AuctionID}
	switch {
	case w.BidderName != "":
		b.BidderName = w.BidderName
	case w.Username != "":
		b.BidderName = w.Username
	default:
		b.BidderName = w.Bidder
	}
	switch {
	case w.Amount != nil:
		b.Amount = *w.Amount
	case w.Price != nil:
		b.Amount = *w.Price
	}
	if len(w.Timestamp) > 0 && w.Timestamp[0] == '"' {
		_ = json.Unmarshal(w.Timestamp, &b.Timestamp)
	}
	return nil
}

// User is an account as listed on the admin dashboard.
type User struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// Severity of a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Notification is an ephemeral user-facing message.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	TTLMs     int64     `json:"ttlMs"`
	CreatedAt time.Time `json:"createdAt"`
}

// ConnectionStatus is the lifecycle state of a live auction channel.
type ConnectionStatus string

const (
	StatusIdle         ConnectionStatus = "idle"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusSubscribing  ConnectionStatus = "subscribing"
	StatusConnected    ConnectionStatus = "connected"
	StatusError        ConnectionStatus = "error"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// ConnectionState is a snapshot of a channel as seen by views.
type ConnectionState struct {
	AuctionID ID               `json:"auctionId"`
	Status    ConnectionStatus `json:"status"`
	LastError string           `json:"lastError,omitempty"`
}
