package live

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"auction-console/internal/auctionerrors"
	bidding "auction-console/internal/biddingService"
	"auction-console/internal/channel"
	"auction-console/internal/models"
	"auction-console/utils"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

//go:generate mockgen -source=view.go -destination=mock_view.go -package=live

// AuctionSource is the REST side of a live view.
type AuctionSource interface {
	GetAuction(ctx context.Context, id models.ID) (models.Auction, error)
	BidHistory(ctx context.Context, id models.ID) ([]models.Bid, error)
}

// Notifier receives operator-facing messages.
type Notifier interface {
	Show(message string, severity models.Severity) string
}

// Update kinds streamed to the live screen.
const (
	UpdateSnapshot = "snapshot"
	UpdateBid      = "bid"
	UpdateStatus   = "status"
	UpdatePending  = "pending"
	UpdateExpired  = "pending_expired"
)

// Snapshot is the full state of a live view.
type Snapshot struct {
	Auction     *models.Auction        `json:"auction,omitempty"`
	Price       decimal.Decimal        `json:"price"`
	Pending     bool                   `json:"pending"`
	Bids        []models.Bid           `json:"bids"`
	Leaderboard []models.Bid           `json:"leaderboard"`
	Connection  models.ConnectionState `json:"connection"`
}

// Update is one event on the live stream. Each carries a full snapshot so a
// consumer that misses updates catches up on the next one.
type Update struct {
	Type     string      `json:"type"`
	Bid      *models.Bid `json:"bid,omitempty"`
	Snapshot Snapshot    `json:"snapshot"`
}

const leaderboardSize = 10

// View is one mounted live auction screen.
type View struct {
	auctionID models.ID
	token     string
	ledger    *bidding.Ledger
	notifier  Notifier

	mu      sync.Mutex
	channel *channel.Channel

	updates   chan Update
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newView(ctx context.Context, auctionID models.ID, token string, notifier Notifier, cfg Config) *View {
	vctx, cancel := context.WithCancel(ctx)
	v := &View{
		auctionID: auctionID,
		token:     token,
		notifier:  notifier,
		updates:   make(chan Update, cfg.bufferSize()),
		ctx:       vctx,
		cancel:    cancel,
	}
	v.ledger = bidding.NewLedger(
		bidding.WithClock(cfg.clock()),
		bidding.WithPendingTimeout(cfg.pendingTimeout()),
		bidding.OnPendingExpired(v.onPendingExpired),
	)
	return v
}

func (v *View) AuctionID() models.ID { return v.auctionID }

// Token returns the session token the view was mounted with.
func (v *View) Token() string { return v.token }

// Updates streams view events until the view is closed.
func (v *View) Updates() <-chan Update { return v.updates }

// Done is closed when the view is closed.
func (v *View) Done() <-chan struct{} { return v.ctx.Done() }

func (v *View) attach(ch *channel.Channel) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.channel = ch
}

func (v *View) ch() *channel.Channel {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.channel
}

func (v *View) handlers() channel.Handlers {
	return channel.Handlers{
		OnBidUpdate: v.onBid,
		OnError:     v.onError,
		OnConnected: v.onConnected,
	}
}

// Load fetches the auction and its bid history concurrently. Either may finish
// first, and either may land before or after live bids.
func (v *View) Load(ctx context.Context, source AuctionSource) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		auction, err := source.GetAuction(gctx, v.auctionID)
		if err != nil {
			return fmt.Errorf("live: load auction %s: %w", v.auctionID, err)
		}
		v.ledger.SetAuction(auction)
		if ch := v.ch(); ch != nil {
			ch.SetCurrentPrice(auction.Price())
		}
		return nil
	})
	g.Go(func() error {
		history, err := source.BidHistory(gctx, v.auctionID)
		if err != nil {
			return fmt.Errorf("live: load bid history %s: %w", v.auctionID, err)
		}
		v.ledger.SeedHistory(history)
		if ch := v.ch(); ch != nil {
			ch.SetCurrentPrice(v.ledger.CurrentPrice())
		}
		return nil
	})

	err := g.Wait()
	v.publish(Update{Type: UpdateSnapshot})
	return err
}

// PlaceBid sends a bid over the live channel and shows it as pending until the
// broker echoes a bid back.
func (v *View) PlaceBid(ctx context.Context, amount decimal.Decimal) error {
	if auction, ok := v.ledger.Auction(); ok && !auction.Active {
		err := fmt.Errorf("live: %w", auctionerrors.ErrAuctionInactive)
		v.notifier.Show("This auction is not active", models.SeverityWarning)
		return err
	}

	ch := v.ch()
	if ch == nil {
		return fmt.Errorf("live: %w", auctionerrors.ErrNotConnected)
	}
	ch.SetCurrentPrice(v.ledger.CurrentPrice())

	// pending goes up first so an echo racing the send is never overwritten by it
	v.ledger.MarkPending(amount)
	// channel errors are reported through onError
	if err := ch.SendBid(ctx, amount); err != nil {
		v.ledger.ClearPending(amount)
		return err
	}
	v.publish(Update{Type: UpdatePending})
	return nil
}

// Snapshot returns the current state.
func (v *View) Snapshot() Snapshot {
	price, pending := v.ledger.DisplayPrice()
	snap := Snapshot{
		Price:       price,
		Pending:     pending,
		Bids:        v.ledger.Bids(),
		Leaderboard: v.ledger.Leaderboard(leaderboardSize),
		Connection:  models.ConnectionState{AuctionID: v.auctionID, Status: models.StatusIdle},
	}
	if auction, ok := v.ledger.Auction(); ok {
		snap.Auction = &auction
	}
	if ch := v.ch(); ch != nil {
		snap.Connection = ch.State()
	}
	return snap
}

// Close closes the channel and ends the update stream. It is idempotent and
// returns once the channel's background goroutine has exited, so it must not be
// called from a channel handler.
func (v *View) Close() {
	v.closeOnce.Do(func() {
		v.cancel()
		if ch := v.ch(); ch != nil {
			ch.Close()
			<-ch.Done()
		}
		v.ledger.Close()
		utils.Info("live: view closed", map[string]any{"auction_id": v.auctionID})
	})
}

func (v *View) onBid(bid models.Bid) {
	if !v.ledger.Apply(bid) {
		return
	}
	b := bid
	v.publish(Update{Type: UpdateBid, Bid: &b})
}

func (v *View) onError(err error) {
	switch {
	case errors.Is(err, auctionerrors.ErrValidation):
		v.notifier.Show(validationMessage(err), models.SeverityWarning)
	case errors.Is(err, auctionerrors.ErrNotConnected), errors.Is(err, auctionerrors.ErrChannelClosed):
		v.notifier.Show("Not connected to the live auction", models.SeverityError)
	default:
		v.notifier.Show("Live connection error, reconnecting", models.SeverityError)
	}
	v.publish(Update{Type: UpdateStatus})
}

func (v *View) onConnected() {
	v.notifier.Show("Connected to live auction", models.SeverityInfo)
	v.publish(Update{Type: UpdateStatus})
}

func (v *View) onPendingExpired(amount decimal.Decimal) {
	v.notifier.Show(fmt.Sprintf("Bid of %s was not confirmed", amount.StringFixed(2)), models.SeverityWarning)
	v.publish(Update{Type: UpdateExpired})
}

// publish never blocks; a full buffer drops the update.
func (v *View) publish(u Update) {
	if v.ctx.Err() != nil {
		return
	}
	u.Snapshot = v.Snapshot()
	select {
	case v.updates <- u:
	default:
		utils.Debug("live: dropping update for slow consumer", map[string]any{"auction_id": v.auctionID, "type": u.Type})
	}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return "Bid must be higher than the current price"
	case errors.Is(err, auctionerrors.ErrInvalidAmount):
		return "Bid amount must be positive"
	case errors.Is(err, auctionerrors.ErrAuctionInactive):
		return "This auction is not active"
	}
	return "Invalid bid"
}
