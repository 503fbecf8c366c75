package live

import (
	"context"
	"sync"
	"time"

	bidding "auction-console/internal/biddingService"
	"auction-console/internal/channel"
	"auction-console/internal/models"
	"auction-console/utils"

	"github.com/jonboulle/clockwork"
)

// Config tunes every view mounted by a Registry.
type Config struct {
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	Receipts             bool
	PendingTimeout       time.Duration
	UpdateBuffer         int
	Clock                clockwork.Clock
}

func (c Config) clock() clockwork.Clock {
	if c.Clock == nil {
		return clockwork.NewRealClock()
	}
	return c.Clock
}

func (c Config) pendingTimeout() time.Duration {
	if c.PendingTimeout <= 0 {
		return bidding.DefaultPendingTimeout
	}
	return c.PendingTimeout
}

func (c Config) bufferSize() int {
	if c.UpdateBuffer <= 0 {
		return 64
	}
	return c.UpdateBuffer
}

func (c Config) channelOptions() []channel.Option {
	opts := []channel.Option{
		channel.WithClock(c.clock()),
		channel.WithMaxReconnectAttempts(c.MaxReconnectAttempts),
		channel.WithReceipts(c.Receipts),
	}
	if c.ReconnectDelay > 0 {
		opts = append(opts, channel.WithReconnectDelay(c.ReconnectDelay))
	}
	return opts
}

// Registry keeps at most one live view per auction.
type Registry struct {
	dialer   channel.Dialer
	source   AuctionSource
	notifier Notifier
	cfg      Config

	mountMu sync.Mutex

	mu    sync.Mutex
	views map[models.ID]*View
}

func NewRegistry(dialer channel.Dialer, source AuctionSource, notifier Notifier, cfg Config) *Registry {
	return &Registry{
		dialer:   dialer,
		source:   source,
		notifier: notifier,
		cfg:      cfg,
		views:    make(map[models.ID]*View),
	}
}

// Mount opens a live view for auctionID, closing any view already mounted for it
// first, so at most one connection per auction is ever open. Concurrent Mounts
// are serialized. The view lives until Unmount, CloseAll or ctx is done. Detail
// and history are loaded in the background.
func (r *Registry) Mount(ctx context.Context, auctionID models.ID, token string) (*View, error) {
	r.mountMu.Lock()
	defer r.mountMu.Unlock()

	r.mu.Lock()
	previous := r.views[auctionID]
	delete(r.views, auctionID)
	r.mu.Unlock()

	if previous != nil {
		utils.Info("live: replacing mounted view", map[string]any{"auction_id": auctionID})
		previous.Close()
	}

	v := newView(ctx, auctionID, token, r.notifier, r.cfg)
	ch, err := channel.Open(v.ctx, r.dialer, auctionID, token, v.handlers(), r.cfg.channelOptions()...)
	if err != nil {
		v.Close()
		return nil, err
	}
	v.attach(ch)

	r.mu.Lock()
	r.views[auctionID] = v
	r.mu.Unlock()

	go func() {
		if err := v.Load(v.ctx, r.source); err != nil && v.ctx.Err() == nil {
			utils.Warn("live: initial load failed", map[string]any{"auction_id": auctionID, "error": err.Error()})
			r.notifier.Show("Could not load auction details", models.SeverityError)
		}
	}()
	return v, nil
}

// Get returns the view mounted for auctionID.
func (r *Registry) Get(auctionID models.ID) (*View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[auctionID]
	return v, ok
}

// Unmount closes v and forgets it if it is still the mounted view.
func (r *Registry) Unmount(v *View) {
	r.mu.Lock()
	if r.views[v.auctionID] == v {
		delete(r.views, v.auctionID)
	}
	r.mu.Unlock()
	v.Close()
}

// CloseAll unmounts every view, e.g. on logout.
func (r *Registry) CloseAll() {
	r.mountMu.Lock()
	defer r.mountMu.Unlock()

	r.mu.Lock()
	views := make([]*View, 0, len(r.views))
	for _, v := range r.views {
		views = append(views, v)
	}
	r.views = make(map[models.ID]*View)
	r.mu.Unlock()

	for _, v := range views {
		v.Close()
	}
}

// Len returns the number of mounted views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}
