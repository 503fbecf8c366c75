package integrationtests

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"auction-console/internal/api"
	"auction-console/internal/channel"
	"auction-console/internal/channel/stomptest"
	"auction-console/internal/live"
	"auction-console/internal/models"
	"auction-console/internal/notification"
	"auction-console/internal/repository"
	"auction-console/internal/server"
	"auction-console/internal/session"
	handler "auction-console/services/console/handler"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	backendToken = "tok"
	waitFor      = 3 * time.Second
	tick         = 10 * time.Millisecond
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

// Backend is a fake auction REST server.
type Backend struct {
	mu       sync.Mutex
	users    map[string]models.AuthResponse
	auctions map[models.ID]models.Auction
	history  map[models.ID][]models.Bid
	placed   []models.BidRequest
	srv      *httptest.Server
}

func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		users: map[string]models.AuthResponse{
			"a@b.com":            {Token: backendToken, Username: "a", Role: string(models.RoleBidder), UserID: "3"},
			"bidder@example.com": {Token: backendToken, Username: "bidder", Role: string(models.RoleBidder), UserID: "1"},
			"seller@example.com": {Token: backendToken, Username: "seller", Role: string(models.RoleSeller), UserID: "2"},
		},
		auctions: make(map[models.ID]models.Auction),
		history:  make(map[models.ID][]models.Bid),
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.POST("/auth/login", b.login)

	authed := v1.Group("", b.requireToken)
	authed.GET("/auction/all", b.listAuctions)
	authed.GET("/auction/:id", b.getAuction)
	authed.GET("/bids/auction/:id", b.bidHistory)
	authed.POST("/bids", b.placeBid)

	b.srv = httptest.NewServer(router)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *Backend) URL() string { return b.srv.URL + "/api/v1" }

// AddAuction seeds an auction and its bid history.
func (b *Backend) AddAuction(a models.Auction, history ...models.Bid) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.auctions[a.ID] = a
	b.history[a.ID] = history
}

// Placed returns every bid received on POST /bids.
func (b *Backend) Placed() []models.BidRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.BidRequest(nil), b.placed...)
}

func (b *Backend) requireToken(c *gin.Context) {
	if c.GetHeader("Authorization") != "Bearer "+backendToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func (b *Backend) login(c *gin.Context) {
	var creds models.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	b.mu.Lock()
	resp, ok := b.users[creds.Email]
	b.mu.Unlock()
	if !ok || creds.Password != "secret" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bad credentials"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (b *Backend) listAuctions(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Auction, 0, len(b.auctions))
	for _, a := range b.auctions {
		out = append(out, a)
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) getAuction(c *gin.Context) {
	b.mu.Lock()
	a, ok := b.auctions[models.ID(c.Param("id"))]
	b.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such auction"})
		return
	}
	c.JSON(http.StatusOK, a)
}

func (b *Backend) bidHistory(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, b.history[models.ID(c.Param("id"))])
}

func (b *Backend) placeBid(c *gin.Context) {
	var req models.BidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.placed = append(b.placed, req)
	c.JSON(http.StatusCreated, models.Bid{ID: models.ID("b" + req.AuctionID), AuctionID: req.AuctionID, BidderName: "bidder", Amount: req.Amount})
}

// Console is a fully wired console served over a real listener.
type Console struct {
	Backend  *Backend
	Broker   *stomptest.Broker
	Store    *session.Store
	Queue    *notification.Queue
	Registry *live.Registry
	server   *httptest.Server
	client   *http.Client
}

// SetupConsole wires the console against a fake backend and an in-process broker.
func SetupConsole(t *testing.T) *Console {
	t.Helper()
	backend := NewBackend(t)
	broker := stomptest.NewBroker(backendToken)
	t.Cleanup(broker.Close)

	var store *session.Store
	client := api.NewClient(backend.URL(), 2*time.Second, api.TokenFunc(func() string { return store.Token() }))
	store = session.NewStore(repository.NewMemoryRepo(), client)

	queue := notification.NewQueue(notification.WithDefaultTTL(time.Minute))
	registry := live.NewRegistry(channel.NewStompDialer(broker.URL(), time.Second), client, queue, live.Config{
		ReconnectDelay: 50 * time.Millisecond,
		Receipts:       true,
		PendingTimeout: time.Minute,
	})
	t.Cleanup(registry.CloseAll)

	h := handler.NewHandler(client, store, queue, registry)
	srv := httptest.NewServer(server.SetupRouter(h, server.NewGate(store, registry, queue, nil)))
	t.Cleanup(srv.Close)

	return &Console{
		Backend:  backend,
		Broker:   broker,
		Store:    store,
		Queue:    queue,
		Registry: registry,
		server:   srv,
		client: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
	}
}

// Do executes a request against the console and parses the JSON envelope, if any.
func (c *Console) Do(t *testing.T, method, path string, body any) (map[string]any, *http.Response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	var resp map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &resp))
	}
	return resp, res
}

// Login signs in through the console and checks the redirect.
func (c *Console) Login(t *testing.T, email string) {
	t.Helper()
	_, res := c.Do(t, http.MethodPost, "/login", map[string]string{"email": email, "password": "secret"})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	require.Equal(t, "/auctions", res.Header.Get("Location"))
}

// Stream is an open live view as seen by a browser.
type Stream struct {
	Events <-chan live.Update
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *Stream) Close() {
	s.cancel()
	<-s.done
}

// Ended reports whether the server closed the stream.
func (s *Stream) Ended() <-chan struct{} { return s.done }

// OpenLive opens the SSE stream of an auction's live view.
func (c *Console) OpenLive(t *testing.T, auctionID models.ID) *Stream {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.server.URL+"/auctions/"+string(auctionID)+"/live", nil)
	require.NoError(t, err)

	res, err := c.client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, res.Header.Get("Content-Type"), "text/event-stream")

	events := make(chan live.Update, 256)
	s := &Stream{Events: events, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		defer res.Body.Close()
		scanner := bufio.NewScanner(res.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var u live.Update
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &u); err != nil {
				continue
			}
			select {
			case events <- u:
			case <-ctx.Done():
				return
			}
		}
	}()
	t.Cleanup(s.Close)
	return s
}

// Next returns the next update of the given type.
func (s *Stream) Next(t *testing.T, updateType string) live.Update {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case u := <-s.Events:
			if u.Type == updateType {
				return u
			}
		case <-deadline:
			t.Fatalf("no %s update within %s", updateType, waitFor)
		}
	}
}

// WaitLive blocks until the mounted view for auctionID is connected and loaded.
func (c *Console) WaitLive(t *testing.T, auctionID models.ID) *live.View {
	t.Helper()
	var view *live.View
	require.Eventually(t, func() bool {
		v, ok := c.Registry.Get(auctionID)
		if !ok {
			return false
		}
		snap := v.Snapshot()
		view = v
		return snap.Auction != nil && snap.Connection.Status == models.StatusConnected
	}, waitFor, tick)
	return view
}

// HasNotification reports whether any queued notification contains substr.
func (c *Console) HasNotification(substr string) bool {
	for _, n := range c.Queue.List() {
		if strings.Contains(n.Message, substr) {
			return true
		}
	}
	return false
}

func timeout() <-chan time.Time { return time.After(waitFor) }
