package channel

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"auction-console/internal/auctionerrors"
	"auction-console/internal/models"

	"github.com/golang/mock/gomock"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type fakeConn struct {
	msgs chan []byte

	mu         sync.Mutex
	subscribed []string
	sent       [][]byte
	err        error
	closed     bool
	dropOnce   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{msgs: make(chan []byte, 32)}
}

func (f *fakeConn) Subscribe(_ context.Context, destination string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, destination)
	return nil
}

func (f *fakeConn) Messages() <-chan []byte { return f.msgs }

func (f *fakeConn) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeConn) Send(_ context.Context, destination string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if destination != BidDestination {
		return errors.New("unexpected destination " + destination)
	}
	f.sent = append(f.sent, body)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// drop simulates the broker going away.
func (f *fakeConn) drop(err error) {
	f.dropOnce.Do(func() {
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
		close(f.msgs)
	})
}

func (f *fakeConn) sentBodies() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeDialer hands out queued conns and blocks when none are queued.
type fakeDialer struct {
	conns chan *fakeConn

	mu     sync.Mutex
	tokens []string
}

func newFakeDialer(conns ...*fakeConn) *fakeDialer {
	d := &fakeDialer{conns: make(chan *fakeConn, 8)}
	for _, c := range conns {
		d.conns <- c
	}
	return d
}

func (d *fakeDialer) Dial(ctx context.Context, token string) (Conn, error) {
	d.mu.Lock()
	d.tokens = append(d.tokens, token)
	d.mu.Unlock()

	select {
	case c := <-d.conns:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type recorder struct {
	mu        sync.Mutex
	bids      []models.Bid
	errs      []error
	connected int
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnBidUpdate: func(b models.Bid) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.bids = append(r.bids, b)
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, err)
		},
		OnConnected: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.connected++
		},
	}
}

func (r *recorder) bidCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bids)
}

func (r *recorder) errCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func (r *recorder) snapshot() ([]models.Bid, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Bid(nil), r.bids...), append([]error(nil), r.errs...)
}

func openConnected(t *testing.T, auctionID models.ID, conn *fakeConn, rec *recorder, opts ...Option) *Channel {
	t.Helper()
	opts = append([]Option{WithClock(clockwork.NewFakeClock())}, opts...)
	ch, err := Open(context.Background(), newFakeDialer(conn), auctionID, "tok", rec.handlers(), opts...)
	require.NoError(t, err)
	t.Cleanup(ch.Close)
	require.Eventually(t, ch.IsConnected, waitFor, 5*time.Millisecond)
	return ch
}

func TestOpen_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		auctionID models.ID
		token     string
		dialer    Dialer
	}{
		{name: "missing_auction", auctionID: "", token: "tok", dialer: newFakeDialer()},
		{name: "missing_token", auctionID: "42", token: "", dialer: newFakeDialer()},
		{name: "missing_dialer", auctionID: "42", token: "tok", dialer: nil},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ch, err := Open(context.Background(), tc.dialer, tc.auctionID, tc.token, Handlers{})
			require.ErrorIs(t, err, auctionerrors.ErrValidation)
			require.Nil(t, ch)
		})
	}
}

func TestChannel_SubscribesToAuctionTopic(t *testing.T) {
	t.Parallel()
	conn := newFakeConn()
	rec := &recorder{}
	ch := openConnected(t, "42", conn, rec)

	conn.mu.Lock()
	require.Equal(t, []string{"/topic/auction/42"}, conn.subscribed)
	conn.mu.Unlock()
	require.Equal(t, models.StatusConnected, ch.Status())
	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.connected == 1
	}, waitFor, 5*time.Millisecond)
}

func TestChannel_DeliversValidMessagesInArrivalOrder(t *testing.T) {
	t.Parallel()
	conn := newFakeConn()
	rec := &recorder{}
	ch := openConnected(t, "42", conn, rec)

	inbound := []string{
		`{"amount":150,"bidderName":"x"}`,
		`not json`,
		`{"bidderName":"nobody"}`,
		`{"amount":-3,"bidderName":"neg"}`,
		`{"auctionId":7,"amount":999,"bidderName":"elsewhere"}`,
		`{"username":"y","price":140,"timestamp":[2024,5,1]}`,
		`{"auctionId":42,"amount":160,"bidderName":"z"}`,
	}
	for _, m := range inbound {
		conn.msgs <- []byte(m)
	}

	require.Eventually(t, func() bool { return rec.bidCount() == 3 }, waitFor, 5*time.Millisecond)
	bids, errs := rec.snapshot()
	require.Empty(t, errs, "malformed messages are not errors")
	require.Equal(t, "x", bids[0].BidderName)
	require.Equal(t, "y", bids[1].BidderName)
	require.Equal(t, "z", bids[2].BidderName)
	require.Equal(t, models.ID("42"), bids[1].AuctionID, "auction id is filled in")
	require.True(t, bids[1].Amount.Equal(decimal.NewFromInt(140)), "lower amount is still delivered")

	require.True(t, ch.IsConnected(), "bad messages never close the feed")
	require.True(t, ch.CurrentPrice().Equal(decimal.NewFromInt(160)))
}

func TestChannel_SendBidWhileDisconnected(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	ch, err := Open(context.Background(), newFakeDialer(), "42", "tok", rec.handlers(), WithClock(clockwork.NewFakeClock()))
	require.NoError(t, err)
	defer ch.Close()

	err = ch.SendBid(context.Background(), decimal.NewFromInt(100))
	require.ErrorIs(t, err, auctionerrors.ErrNotConnected)
	require.ErrorIs(t, err, auctionerrors.ErrTransport)

	_, errs := rec.snapshot()
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], auctionerrors.ErrNotConnected)
}

func TestChannel_SendBidPreValidation(t *testing.T) {
	t.Parallel()
	conn := newFakeConn()
	rec := &recorder{}
	ch := openConnected(t, "42", conn, rec)
	ch.SetCurrentPrice(decimal.NewFromInt(120))

	tests := []struct {
		name     string
		amount   decimal.Decimal
		expected error
	}{
		{name: "below_current", amount: decimal.NewFromInt(100), expected: auctionerrors.ErrBidTooLow},
		{name: "equal_current", amount: decimal.NewFromInt(120), expected: auctionerrors.ErrBidTooLow},
		{name: "zero", amount: decimal.Zero, expected: auctionerrors.ErrInvalidAmount},
	}
	for i, tc := range tests {
		err := ch.SendBid(context.Background(), tc.amount)
		require.ErrorIs(t, err, tc.expected, tc.name)
		require.NotErrorIs(t, err, auctionerrors.ErrTransport, tc.name)
		require.Equal(t, i+1, rec.errCount(), "OnError runs exactly once per failure")
	}
	require.Empty(t, conn.sentBodies(), "rejected bids never reach the transport")

	require.NoError(t, ch.SendBid(context.Background(), decimal.RequireFromString("130.5")))
	sent := conn.sentBodies()
	require.Len(t, sent, 1)
	require.JSONEq(t, `{"auctionId":42,"price":130.5,"amount":130.5}`, string(sent[0]))
}

func TestChannel_ReconnectsAfterFixedDelay(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	clock := clockwork.NewFakeClock()
	dialer := NewMockDialer(ctrl)
	conn := newFakeConn()

	gomock.InOrder(
		dialer.EXPECT().Dial(gomock.Any(), "tok").Return(nil, auctionerrors.ErrHandshake),
		dialer.EXPECT().Dial(gomock.Any(), "tok").Return(conn, nil),
	)

	rec := &recorder{}
	ch, err := Open(context.Background(), dialer, "42", "tok", rec.handlers(),
		WithClock(clock), WithReconnectDelay(3*time.Second))
	require.NoError(t, err)
	defer ch.Close()

	require.Eventually(t, func() bool { return rec.errCount() == 1 }, waitFor, 5*time.Millisecond)
	require.Equal(t, models.StatusError, ch.Status())
	require.ErrorIs(t, ch.LastError(), auctionerrors.ErrHandshake)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(3 * time.Second)

	require.Eventually(t, ch.IsConnected, waitFor, 5*time.Millisecond)
	require.NoError(t, ch.LastError())
}

func TestChannel_TransportDropReportsAndReconnects(t *testing.T) {
	t.Parallel()
	clock := clockwork.NewFakeClock()
	first, second := newFakeConn(), newFakeConn()
	rec := &recorder{}

	ch, err := Open(context.Background(), newFakeDialer(first, second), "42", "tok", rec.handlers(), WithClock(clock))
	require.NoError(t, err)
	defer ch.Close()
	require.Eventually(t, ch.IsConnected, waitFor, 5*time.Millisecond)

	first.drop(errors.New("connection reset"))
	require.Eventually(t, func() bool { return rec.errCount() == 1 }, waitFor, 5*time.Millisecond)
	_, errs := rec.snapshot()
	require.ErrorIs(t, errs[0], auctionerrors.ErrTransport)
	require.True(t, first.isClosed())

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(DefaultReconnectDelay)
	require.Eventually(t, ch.IsConnected, waitFor, 5*time.Millisecond)

	second.msgs <- []byte(`{"amount":5,"bidderName":"after"}`)
	require.Eventually(t, func() bool { return rec.bidCount() == 1 }, waitFor, 5*time.Millisecond)
}

func TestChannel_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	clock := clockwork.NewFakeClock()
	dialer := NewMockDialer(ctrl)
	dialer.EXPECT().Dial(gomock.Any(), "tok").Return(nil, errors.New("refused")).Times(2)

	rec := &recorder{}
	ch, err := Open(context.Background(), dialer, "42", "tok", rec.handlers(),
		WithClock(clock), WithMaxReconnectAttempts(1))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(DefaultReconnectDelay)

	select {
	case <-ch.Done():
	case <-time.After(waitFor):
		t.Fatal("channel kept reconnecting")
	}
	require.Equal(t, 2, rec.errCount(), "every failed attempt is reported")
	require.Equal(t, models.StatusError, ch.Status())
	ch.Close()
}

func TestChannel_Close(t *testing.T) {
	t.Parallel()
	conn := newFakeConn()
	rec := &recorder{}
	ch := openConnected(t, "42", conn, rec)

	ch.Close()
	ch.Close()
	require.Equal(t, models.StatusDisconnected, ch.Status())
	require.False(t, ch.IsConnected())
	require.True(t, conn.isClosed())

	conn.msgs <- []byte(`{"amount":1,"bidderName":"late"}`)
	select {
	case <-ch.Done():
	case <-time.After(waitFor):
		t.Fatal("background goroutine still running after Close")
	}
	require.Equal(t, 0, rec.bidCount(), "no handler runs after Close")
}

func TestChannel_SendBidAfterClose(t *testing.T) {
	t.Parallel()
	conn := newFakeConn()
	rec := &recorder{}
	ch := openConnected(t, "42", conn, rec)
	ch.Close()
	<-ch.Done()

	err := ch.SendBid(context.Background(), decimal.NewFromInt(500))
	require.ErrorIs(t, err, auctionerrors.ErrChannelClosed)

	_, errs := rec.snapshot()
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], auctionerrors.ErrChannelClosed)
	require.Empty(t, conn.sentBodies())
}

func TestChannel_CloseWhileHandlerRuns(t *testing.T) {
	t.Parallel()
	conn := newFakeConn()
	entered := make(chan struct{}, 4)
	release := make(chan struct{})
	var mu sync.Mutex
	var seen []string

	ch, err := Open(context.Background(), newFakeDialer(conn), "42", "tok", Handlers{}, WithClock(clockwork.NewFakeClock()))
	require.NoError(t, err)
	ch.SetHandlers(Handlers{OnBidUpdate: func(b models.Bid) {
		mu.Lock()
		seen = append(seen, b.BidderName)
		mu.Unlock()
		entered <- struct{}{}
		<-release
	}})
	require.Eventually(t, ch.IsConnected, waitFor, 5*time.Millisecond)

	conn.msgs <- []byte(`{"amount":1,"bidderName":"first"}`)
	conn.msgs <- []byte(`{"amount":2,"bidderName":"second"}`)
	<-entered

	closed := make(chan struct{})
	go func() {
		ch.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(waitFor):
		t.Fatal("Close blocked on a running handler")
	}

	select {
	case <-ch.Done():
		t.Fatal("goroutine exited while its handler was still running")
	default:
	}
	close(release)
	<-ch.Done()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first"}, seen, "no handler starts after Close returns")
}

func TestChannel_CloseFromHandler(t *testing.T) {
	t.Parallel()
	conn := newFakeConn()
	closed := make(chan struct{})

	ch, err := Open(context.Background(), newFakeDialer(conn), "42", "tok", Handlers{}, WithClock(clockwork.NewFakeClock()))
	require.NoError(t, err)
	ch.SetHandlers(Handlers{OnBidUpdate: func(models.Bid) {
		ch.Close()
		close(closed)
	}})
	require.Eventually(t, ch.IsConnected, waitFor, 5*time.Millisecond)

	conn.msgs <- []byte(`{"amount":1,"bidderName":"a"}`)
	select {
	case <-closed:
	case <-time.After(waitFor):
		t.Fatal("Close deadlocked inside a handler")
	}
	<-ch.Done()
	require.Equal(t, models.StatusDisconnected, ch.Status())
}

func TestChannel_NoCrossTalkAfterReopen(t *testing.T) {
	t.Parallel()
	oldConn, newConn := newFakeConn(), newFakeConn()
	oldRec, newRec := &recorder{}, &recorder{}

	old := openConnected(t, "42", oldConn, oldRec)
	old.Close()

	next := openConnected(t, "43", newConn, newRec)
	require.Equal(t, models.ID("43"), next.AuctionID())

	oldConn.msgs <- []byte(`{"auctionId":42,"amount":10,"bidderName":"old"}`)
	newConn.msgs <- []byte(`{"auctionId":42,"amount":10,"bidderName":"stray"}`)
	newConn.msgs <- []byte(`{"auctionId":43,"amount":11,"bidderName":"mine"}`)

	require.Eventually(t, func() bool { return newRec.bidCount() == 1 }, waitFor, 5*time.Millisecond)
	bids, _ := newRec.snapshot()
	require.Equal(t, "mine", bids[0].BidderName)
	require.Equal(t, 0, oldRec.bidCount())
}

func TestChannel_SetHandlersKeepsConnection(t *testing.T) {
	t.Parallel()
	conn := newFakeConn()
	first := &recorder{}
	ch := openConnected(t, "42", conn, first)

	second := &recorder{}
	ch.SetHandlers(second.handlers())
	require.True(t, ch.IsConnected())

	conn.msgs <- []byte(`{"amount":3,"bidderName":"a"}`)
	require.Eventually(t, func() bool { return second.bidCount() == 1 }, waitFor, 5*time.Millisecond)
	require.Equal(t, 0, first.bidCount())
}

func TestBidPayload_NonNumericAuctionID(t *testing.T) {
	t.Parallel()
	out, err := json.Marshal(bidPayload{AuctionID: "abc", Price: decimal.NewFromInt(5), Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)
	require.JSONEq(t, `{"auctionId":"abc","price":5,"amount":5}`, string(out))
}
