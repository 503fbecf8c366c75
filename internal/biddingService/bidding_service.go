package bidding

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-console/internal/auctionerrors"
	"auction-console/internal/models"
	"auction-console/utils"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

// DefaultPendingTimeout bounds how long an optimistic price stays on screen
// without an authoritative bid message.
const DefaultPendingTimeout = 10 * time.Second

// PreValidate is the client-side check run before a bid leaves the console.
// The server stays the authority; this only rejects bids that cannot win.
func PreValidate(amount, current decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("bidding: %w", auctionerrors.ErrInvalidAmount)
	}
	if !amount.GreaterThan(current) {
		return fmt.Errorf("bidding: %w - current price is %s", auctionerrors.ErrBidTooLow, current.StringFixed(2))
	}
	return nil
}

// ValidateForAuction adds the auction's active flag to PreValidate.
func ValidateForAuction(auction models.Auction, amount, current decimal.Decimal) error {
	if !auction.Active {
		return fmt.Errorf("bidding: %w - auction %s", auctionerrors.ErrAuctionInactive, auction.ID)
	}
	return PreValidate(amount, current)
}

// Pending is an optimistic price shown until the server confirms or the timeout passes.
type Pending struct {
	Amount decimal.Decimal `json:"amount"`
	Since  time.Time       `json:"since"`
}

type ledgerEntry struct {
	bid models.Bid
	seq int64
}

// Ledger merges bid history and live bid messages for one auction.
type Ledger struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	timeout time.Duration

	auction    models.Auction
	hasAuction bool

	entries []ledgerEntry
	seen    map[models.ID]struct{}
	nextSeq int64 // live arrivals count up from 1
	minSeq  int64 // history is placed below every live arrival
	highest decimal.Decimal

	pending      *Pending
	pendingGen   uint64
	pendingTimer clockwork.Timer
	onExpired    func(amount decimal.Decimal)
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

func WithClock(clock clockwork.Clock) LedgerOption {
	return func(l *Ledger) { l.clock = clock }
}

// WithPendingTimeout sets how long MarkPending values survive.
func WithPendingTimeout(d time.Duration) LedgerOption {
	return func(l *Ledger) { l.timeout = d }
}

// OnPendingExpired is called, outside the ledger lock, when a pending value times out.
func OnPendingExpired(fn func(amount decimal.Decimal)) LedgerOption {
	return func(l *Ledger) { l.onExpired = fn }
}

func NewLedger(opts ...LedgerOption) *Ledger {
	l := &Ledger{
		clock:   clockwork.NewRealClock(),
		timeout: DefaultPendingTimeout,
		seen:    make(map[models.ID]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetAuction records the REST view of the auction. It may arrive before or
// after any bid.
func (l *Ledger) SetAuction(a models.Auction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.auction = a
	l.hasAuction = true
}

// Auction returns the last auction passed to SetAuction.
func (l *Ledger) Auction() (models.Auction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.auction, l.hasAuction
}

// SeedHistory merges bids fetched over REST. History always ranks as older than
// every live arrival, whichever reached the ledger first. Bids already seen by id
// are skipped.
func (l *Ledger) SeedHistory(history []models.Bid) int {
	ordered := make([]models.Bid, len(history))
	copy(ordered, history)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Timestamp != "" && b.Timestamp != "" && a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		return a.Amount.LessThan(b.Amount)
	})

	l.mu.Lock()
	defer l.mu.Unlock()

	fresh := make([]models.Bid, 0, len(ordered))
	for _, bid := range ordered {
		if bid.ID != "" {
			if _, dup := l.seen[bid.ID]; dup {
				continue
			}
			l.seen[bid.ID] = struct{}{}
		}
		fresh = append(fresh, bid)
	}

	// newest history entry sits directly below the oldest known history entry
	seq := l.minSeq - int64(len(fresh))
	for _, bid := range fresh {
		l.entries = append(l.entries, ledgerEntry{bid: bid, seq: seq})
		l.raiseLocked(bid.Amount)
		seq++
	}
	l.minSeq -= int64(len(fresh))
	return len(fresh)
}

// Apply merges one live bid message. It reports false for a duplicate id.
// An authoritative message always clears the pending value.
func (l *Ledger) Apply(bid models.Bid) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if bid.ID != "" {
		if _, dup := l.seen[bid.ID]; dup {
			return false
		}
		l.seen[bid.ID] = struct{}{}
	}

	l.nextSeq++
	l.entries = append(l.entries, ledgerEntry{bid: bid, seq: l.nextSeq})
	l.raiseLocked(bid.Amount)
	l.clearPendingLocked()
	return true
}

func (l *Ledger) raiseLocked(amount decimal.Decimal) {
	if amount.GreaterThan(l.highest) {
		l.highest = amount
	}
}

// Bids returns every bid, most recent arrival first.
func (l *Ledger) Bids() []models.Bid {
	l.mu.Lock()
	entries := append([]ledgerEntry(nil), l.entries...)
	l.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq > entries[j].seq })
	return bidsOf(entries)
}

// Leaderboard returns up to n bids by amount, highest first; equal amounts keep
// arrival order, earliest first. n <= 0 returns all bids.
func (l *Ledger) Leaderboard(n int) []models.Bid {
	l.mu.Lock()
	entries := append([]ledgerEntry(nil), l.entries...)
	l.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].bid.Amount.Equal(entries[j].bid.Amount) {
			return entries[i].bid.Amount.GreaterThan(entries[j].bid.Amount)
		}
		return entries[i].seq < entries[j].seq
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return bidsOf(entries)
}

// Len returns the number of bids held.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// CurrentPrice is the highest of the auction's price and every observed bid.
func (l *Ledger) CurrentPrice() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentLocked()
}

func (l *Ledger) currentLocked() decimal.Decimal {
	price := l.highest
	if l.hasAuction && l.auction.Price().GreaterThan(price) {
		price = l.auction.Price()
	}
	return price
}

// DisplayPrice returns the price to show and whether it is an unconfirmed pending value.
func (l *Ledger) DisplayPrice() (decimal.Decimal, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.currentLocked()
	if l.pending != nil && l.pending.Amount.GreaterThan(current) {
		return l.pending.Amount, true
	}
	return current, false
}

// MarkPending shows amount as a pending price until the next Apply or the timeout.
func (l *Ledger) MarkPending(amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.clearPendingLocked()
	l.pending = &Pending{Amount: amount, Since: l.clock.Now()}
	gen := l.pendingGen
	if l.timeout > 0 {
		l.pendingTimer = l.clock.AfterFunc(l.timeout, func() { l.expirePending(gen) })
	}
}

// ClearPending drops the pending value if it is still amount, e.g. when the bid
// never made it onto the wire. It reports whether anything was cleared.
func (l *Ledger) ClearPending(amount decimal.Decimal) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil || !l.pending.Amount.Equal(amount) {
		return false
	}
	l.clearPendingLocked()
	return true
}

// Pending returns the pending value, if any.
func (l *Ledger) Pending() (Pending, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil {
		return Pending{}, false
	}
	return *l.pending, true
}

// Close stops the pending timer.
func (l *Ledger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clearPendingLocked()
}

func (l *Ledger) clearPendingLocked() {
	if l.pendingTimer != nil {
		l.pendingTimer.Stop()
		l.pendingTimer = nil
	}
	l.pending = nil
	l.pendingGen++
}

func (l *Ledger) expirePending(gen uint64) {
	l.mu.Lock()
	if gen != l.pendingGen || l.pending == nil {
		l.mu.Unlock()
		return
	}
	amount := l.pending.Amount
	l.pending = nil
	l.pendingTimer = nil
	l.pendingGen++
	cb := l.onExpired
	l.mu.Unlock()

	utils.Warn("bidding: pending bid was not confirmed", map[string]any{"amount": amount.String()})
	if cb != nil {
		cb(amount)
	}
}

func bidsOf(entries []ledgerEntry) []models.Bid {
	out := make([]models.Bid, len(entries))
	for i, e := range entries {
		out[i] = e.bid
	}
	return out
}
