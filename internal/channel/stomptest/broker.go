// Package stomptest provides an in-process STOMP 1.2 broker over WebSocket for tests.
package stomptest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
)

// Sent is a SEND frame received from a client.
type Sent struct {
	Destination string
	Body        []byte
}

type subscription struct {
	id          string
	destination string
}

type session struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	mu   sync.Mutex
	subs []subscription
}

func (s *session) write(f *frame.Frame) error {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return s.ws.WriteMessage(websocket.TextMessage, buf.Bytes())
}

// Broker accepts STOMP clients on an httptest server.
type Broker struct {
	// Token, when set, is the only bearer credential accepted on upgrade and CONNECT.
	Token string

	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu         sync.Mutex
	sessions   map[*session]struct{}
	sent       []Sent
	connects   int
	authHeader []string
	nextMsg    int
	subscribed chan string
}

// NewBroker starts a broker. Close it when done.
func NewBroker(token string) *Broker {
	b := &Broker{
		Token:      token,
		sessions:   make(map[*session]struct{}),
		subscribed: make(chan string, 64),
	}
	b.srv = httptest.NewServer(http.HandlerFunc(b.serveWS))
	return b
}

// URL is the ws:// endpoint of the broker.
func (b *Broker) URL() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http") + "/ws/websocket"
}

func (b *Broker) Close() {
	b.DropAll()
	b.srv.Close()
}

// Publish delivers body to every subscriber of destination and returns how many received it.
func (b *Broker) Publish(destination string, body []byte) int {
	b.mu.Lock()
	sessions := make([]*session, 0, len(b.sessions))
	for s := range b.sessions {
		sessions = append(sessions, s)
	}
	b.mu.Unlock()

	delivered := 0
	for _, s := range sessions {
		s.mu.Lock()
		subs := append([]subscription(nil), s.subs...)
		s.mu.Unlock()

		for _, sub := range subs {
			if sub.destination != destination {
				continue
			}
			b.mu.Lock()
			b.nextMsg++
			msgID := strconv.Itoa(b.nextMsg)
			b.mu.Unlock()

			f := frame.New(frame.MESSAGE,
				frame.Destination, destination,
				frame.Subscription, sub.id,
				frame.MessageId, msgID,
				frame.ContentType, "application/json",
			)
			f.Body = body
			if err := s.write(f); err == nil {
				delivered++
			}
		}
	}
	return delivered
}

// WaitSubscribed blocks until a client subscribes to destination.
func (b *Broker) WaitSubscribed(ctx context.Context, destination string) error {
	for {
		select {
		case d := <-b.subscribed:
			if d == destination {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Sent returns every SEND frame received so far.
func (b *Broker) Sent() []Sent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Sent(nil), b.sent...)
}

// Connects returns the number of successful CONNECT handshakes.
func (b *Broker) Connects() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connects
}

// AuthHeaders returns the Authorization header of every CONNECT frame.
func (b *Broker) AuthHeaders() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.authHeader...)
}

// DropAll closes every client connection without a STOMP goodbye.
func (b *Broker) DropAll() {
	b.mu.Lock()
	sessions := make([]*session, 0, len(b.sessions))
	for s := range b.sessions {
		sessions = append(sessions, s)
	}
	b.mu.Unlock()

	for _, s := range sessions {
		_ = s.ws.Close()
	}
}

func (b *Broker) authorized(header string) bool {
	return b.Token == "" || header == "Bearer "+b.Token
}

func (b *Broker) serveWS(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r.Header.Get("Authorization")) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s := &session{ws: ws}
	b.mu.Lock()
	b.sessions[s] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.sessions, s)
		b.mu.Unlock()
		_ = ws.Close()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		fr := frame.NewReader(bytes.NewReader(data))
		for {
			f, err := fr.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return
			}
			if f == nil {
				continue
			}
			if !b.handle(s, f) {
				return
			}
		}
	}
}

// handle processes one client frame and reports whether the session stays open.
func (b *Broker) handle(s *session, f *frame.Frame) bool {
	switch f.Command {
	case frame.CONNECT, frame.STOMP:
		auth := f.Header.Get("Authorization")
		b.mu.Lock()
		b.authHeader = append(b.authHeader, auth)
		b.mu.Unlock()

		if !b.authorized(auth) {
			_ = s.write(frame.New(frame.ERROR, frame.Message, "Invalid or missing token"))
			return false
		}
		b.mu.Lock()
		b.connects++
		b.mu.Unlock()
		return s.write(frame.New(frame.CONNECTED, frame.Version, "1.2", frame.HeartBeat, "0,0")) == nil

	case frame.SUBSCRIBE:
		dest := f.Header.Get(frame.Destination)
		s.mu.Lock()
		s.subs = append(s.subs, subscription{id: f.Header.Get(frame.Id), destination: dest})
		s.mu.Unlock()
		if receipt := f.Header.Get(frame.Receipt); receipt != "" {
			if err := s.write(frame.New(frame.RECEIPT, frame.ReceiptId, receipt)); err != nil {
				return false
			}
		}
		select {
		case b.subscribed <- dest:
		default:
		}
		return true

	case frame.SEND:
		b.mu.Lock()
		b.sent = append(b.sent, Sent{Destination: f.Header.Get(frame.Destination), Body: append([]byte(nil), f.Body...)})
		b.mu.Unlock()
		return true

	case frame.DISCONNECT:
		if receipt := f.Header.Get(frame.Receipt); receipt != "" {
			_ = s.write(frame.New(frame.RECEIPT, frame.ReceiptId, receipt))
		}
		return false
	}
	return true
}
