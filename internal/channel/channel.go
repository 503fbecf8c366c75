package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"auction-console/internal/auctionerrors"
	bidding "auction-console/internal/biddingService"
	"auction-console/internal/models"
	"auction-console/utils"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=channel.go -destination=mock_channel.go -package=channel

const (
	// BidDestination receives bids sent over the channel.
	BidDestination = "/app/bid"

	DefaultReconnectDelay = 5 * time.Second
)

// Topic returns the broker topic carrying bid updates for an auction.
func Topic(auctionID models.ID) string {
	return "/topic/auction/" + string(auctionID)
}

// Dialer opens an authenticated transport session with the broker.
type Dialer interface {
	Dial(ctx context.Context, token string) (Conn, error)
}

// Conn is one connected broker session.
type Conn interface {
	// Subscribe registers for destination. With receipt set it returns only once
	// the broker has confirmed the subscription.
	Subscribe(ctx context.Context, destination string, receipt bool) error
	// Messages yields message bodies in transport order. It is closed when the
	// session ends; Err then reports why.
	Messages() <-chan []byte
	Err() error
	Send(ctx context.Context, destination string, body []byte) error
	Close() error
}

// Handlers receive channel events. Inbound bids and connection errors are
// delivered on the channel's own goroutine, one at a time, in arrival order.
// SendBid failures are reported on the goroutine that called SendBid.
type Handlers struct {
	OnBidUpdate func(bid models.Bid)
	OnError     func(err error)
	OnConnected func()
}

// Option configures a Channel.
type Option func(*Channel)

// WithReconnectDelay sets the fixed wait between reconnect attempts.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Channel) { c.reconnectDelay = d }
}

// WithMaxReconnectAttempts gives up once n reconnects in a row have failed. 0 means never give up.
func WithMaxReconnectAttempts(n int) Option {
	return func(c *Channel) { c.maxAttempts = n }
}

// WithReceipts waits for a broker receipt before reporting a subscription as connected.
func WithReceipts(enabled bool) Option {
	return func(c *Channel) { c.receipts = enabled }
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Channel) { c.clock = clock }
}

// Channel is a live bid subscription for one auction and one token. It never
// rebinds; open a new Channel for a different auction or session.
type Channel struct {
	auctionID models.ID
	token     string
	dialer    Dialer

	clock          clockwork.Clock
	reconnectDelay time.Duration
	maxAttempts    int
	receipts       bool

	mu       sync.Mutex
	handlers Handlers
	status   models.ConnectionStatus
	lastErr  error
	conn     Conn
	current  decimal.Decimal
	closed   bool

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Open validates its arguments and starts connecting in the background. It
// returns immediately with the channel in the connecting state.
func Open(ctx context.Context, dialer Dialer, auctionID models.ID, token string, handlers Handlers, opts ...Option) (*Channel, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("channel: %w - missing auction id", auctionerrors.ErrValidation)
	}
	if token == "" {
		return nil, fmt.Errorf("channel: %w - missing bearer token", auctionerrors.ErrValidation)
	}
	if dialer == nil {
		return nil, fmt.Errorf("channel: %w - missing dialer", auctionerrors.ErrValidation)
	}

	c := &Channel{
		auctionID:      auctionID,
		token:          token,
		dialer:         dialer,
		clock:          clockwork.NewRealClock(),
		reconnectDelay: DefaultReconnectDelay,
		handlers:       handlers,
		status:         models.StatusConnecting,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go c.run(runCtx)

	utils.Info("channel: opened", map[string]any{"auction_id": auctionID})
	return c, nil
}

// AuctionID returns the auction this channel is bound to.
func (c *Channel) AuctionID() models.ID { return c.auctionID }

// SetHandlers replaces the handlers. It does not touch the connection.
func (c *Channel) SetHandlers(h Handlers) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = h
}

// SetCurrentPrice seeds the last known price used by SendBid. Lower values are ignored.
func (c *Channel) SetCurrentPrice(price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if price.GreaterThan(c.current) {
		c.current = price
	}
}

// CurrentPrice returns the last known price.
func (c *Channel) CurrentPrice() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Channel) IsConnected() bool {
	return c.Status() == models.StatusConnected
}

func (c *Channel) Status() models.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastError returns the most recent connection failure, if any.
func (c *Channel) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// State returns a snapshot for views.
func (c *Channel) State() models.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := models.ConnectionState{AuctionID: c.auctionID, Status: c.status}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}

type bidPayload struct {
	AuctionID models.ID       `json:"auctionId"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
}

// SendBid publishes a bid. Amounts that cannot beat the last known price are
// rejected before anything is sent. Every failure is passed to OnError once and
// also returned.
func (c *Channel) SendBid(ctx context.Context, amount decimal.Decimal) error {
	c.mu.Lock()
	closed, status, conn, current := c.closed, c.status, c.conn, c.current
	c.mu.Unlock()

	if closed {
		err := fmt.Errorf("channel: %w", auctionerrors.ErrChannelClosed)
		c.reportError(err)
		return err
	}
	if err := bidding.PreValidate(amount, current); err != nil {
		c.reportError(err)
		return err
	}
	if status != models.StatusConnected || conn == nil {
		err := fmt.Errorf("channel: %w - status %s", auctionerrors.ErrNotConnected, status)
		c.reportError(err)
		return err
	}

	body, err := json.Marshal(bidPayload{AuctionID: c.auctionID, Price: amount, Amount: amount})
	if err != nil {
		err = fmt.Errorf("channel: encode bid: %w", err)
		c.reportError(err)
		return err
	}
	if err := conn.Send(ctx, BidDestination, body); err != nil {
		err = fmt.Errorf("channel: send bid: %w", wrapTransport(err))
		c.reportError(err)
		return err
	}

	utils.Info("channel: bid sent", map[string]any{"auction_id": c.auctionID, "amount": amount.String()})
	return nil
}

// Close tears down the connection and stops reconnecting. It is idempotent and
// never blocks on handlers, so it is safe to call from one. Once it returns the
// background goroutine starts no new handler, though one already running may
// still be finishing. Wait on Done, outside a handler, for the goroutine to exit.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.status = models.StatusDisconnected
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()

		c.cancel()
		if conn != nil {
			if err := conn.Close(); err != nil {
				utils.Debug("channel: close transport", map[string]any{"auction_id": c.auctionID, "error": err.Error()})
			}
		}
		utils.Info("channel: closed", map[string]any{"auction_id": c.auctionID})
	})
}

// Done is closed once the background goroutine has exited.
func (c *Channel) Done() <-chan struct{} { return c.done }

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)

	failures := 0
	for {
		connected, err := c.session(ctx)
		if ctx.Err() != nil {
			c.finish()
			return
		}
		if connected {
			failures = 0
		}
		failures++
		c.fail(err)

		if c.maxAttempts > 0 && failures > c.maxAttempts {
			utils.Error("channel: giving up after repeated failures", map[string]any{
				"auction_id": c.auctionID,
				"attempts":   failures,
			})
			return
		}

		utils.Warn("channel: reconnecting", map[string]any{
			"auction_id": c.auctionID,
			"delay":      c.reconnectDelay.String(),
			"attempt":    failures,
		})
		select {
		case <-ctx.Done():
			c.finish()
			return
		case <-c.clock.After(c.reconnectDelay):
		}
	}
}

// session runs one connect-subscribe-receive cycle. It reports whether the
// subscription was established before the failure.
func (c *Channel) session(ctx context.Context) (bool, error) {
	c.setStatus(models.StatusConnecting)
	conn, err := c.dialer.Dial(ctx, c.token)
	if err != nil {
		return false, fmt.Errorf("channel: connect: %w", wrapTransport(err))
	}
	if !c.attach(conn) {
		_ = conn.Close()
		return false, ctx.Err()
	}
	defer c.detach(conn)

	c.setStatus(models.StatusSubscribing)
	if err := conn.Subscribe(ctx, Topic(c.auctionID), c.receipts); err != nil {
		return false, fmt.Errorf("channel: subscribe: %w", wrapTransport(err))
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, ctx.Err()
	}
	c.status = models.StatusConnected
	c.lastErr = nil
	c.mu.Unlock()

	utils.Info("channel: subscribed", map[string]any{"auction_id": c.auctionID, "topic": Topic(c.auctionID)})
	c.dispatch(func(h Handlers) {
		if h.OnConnected != nil {
			h.OnConnected()
		}
	})

	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case body, ok := <-conn.Messages():
			if !ok {
				cause := conn.Err()
				if cause == nil {
					cause = errors.New("connection closed by broker")
				}
				return true, fmt.Errorf("channel: receive: %w", wrapTransport(cause))
			}
			c.handleMessage(body)
		}
	}
}

func (c *Channel) handleMessage(body []byte) {
	var bid models.Bid
	if err := json.Unmarshal(body, &bid); err != nil {
		utils.Warn("channel: dropping malformed message", map[string]any{"auction_id": c.auctionID, "error": err.Error()})
		return
	}
	if !bid.Amount.IsPositive() {
		utils.Warn("channel: dropping bid without a positive amount", map[string]any{"auction_id": c.auctionID})
		return
	}
	if bid.AuctionID == "" {
		bid.AuctionID = c.auctionID
	} else if bid.AuctionID != c.auctionID {
		utils.Warn("channel: dropping bid for another auction", map[string]any{
			"auction_id": c.auctionID,
			"got":        bid.AuctionID,
		})
		return
	}

	c.SetCurrentPrice(bid.Amount)
	c.dispatch(func(h Handlers) {
		if h.OnBidUpdate != nil {
			h.OnBidUpdate(bid)
		}
	})
}

func (c *Channel) attach(conn Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.conn = conn
	return true
}

func (c *Channel) detach(conn Conn) {
	c.mu.Lock()
	owned := c.conn == conn
	if owned {
		c.conn = nil
	}
	c.mu.Unlock()

	if owned {
		_ = conn.Close()
	}
}

func (c *Channel) setStatus(s models.ConnectionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.status = s
	}
}

func (c *Channel) fail(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.status = models.StatusError
	c.lastErr = err
	c.mu.Unlock()

	utils.Warn("channel: connection failed", map[string]any{"auction_id": c.auctionID, "error": err.Error()})
	c.dispatch(func(h Handlers) {
		if h.OnError != nil {
			h.OnError(err)
		}
	})
}

func (c *Channel) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = models.StatusDisconnected
}

func (c *Channel) openHandlers() (Handlers, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handlers, !c.closed
}

// dispatch runs fn on the background goroutine unless the channel is closed.
func (c *Channel) dispatch(fn func(Handlers)) {
	h, ok := c.openHandlers()
	if !ok {
		return
	}
	fn(h)
}

// reportError runs OnError on the SendBid caller's goroutine, closed or not.
func (c *Channel) reportError(err error) {
	utils.Warn("channel: bid rejected", map[string]any{"auction_id": c.auctionID, "error": err.Error()})
	c.mu.Lock()
	h := c.handlers
	c.mu.Unlock()
	if h.OnError != nil {
		h.OnError(err)
	}
}

func wrapTransport(err error) error {
	if errors.Is(err, auctionerrors.ErrTransport) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", auctionerrors.ErrTransport, err)
}
