package channel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"auction-console/internal/auctionerrors"
	"auction-console/utils"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxFrameSize     = 64 * 1024
	handshakeTimeout = 10 * time.Second
	messageBuffer    = 64
)

// StompDialer speaks STOMP 1.2 over a raw WebSocket. The bearer token is sent
// both on the upgrade request and in the CONNECT frame.
type StompDialer struct {
	URL              string
	HandshakeTimeout time.Duration
	WS               *websocket.Dialer
}

// NewStompDialer returns a dialer for a ws:// or wss:// endpoint.
func NewStompDialer(wsURL string, handshake time.Duration) *StompDialer {
	if handshake <= 0 {
		handshake = handshakeTimeout
	}
	return &StompDialer{
		URL:              wsURL,
		HandshakeTimeout: handshake,
		WS: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshake,
		},
	}
}

func (d *StompDialer) Dial(ctx context.Context, token string) (Conn, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("stomp: %w: invalid url %q", auctionerrors.ErrValidation, d.URL)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, resp, err := d.WS.DialContext(ctx, d.URL, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("stomp: %w: upgrade status %d", auctionerrors.ErrHandshake, resp.StatusCode)
		}
		return nil, fmt.Errorf("stomp: %w: %v", auctionerrors.ErrTransport, err)
	}
	ws.SetReadLimit(maxFrameSize)

	sc := &stompConn{
		ws:       ws,
		messages: make(chan []byte, messageBuffer),
		receipts: make(map[string]chan struct{}),
		done:     make(chan struct{}),
	}
	if err := sc.connect(ctx, u.Hostname(), token, d.HandshakeTimeout); err != nil {
		_ = ws.Close()
		return nil, err
	}

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	go sc.readPump()
	go sc.pingLoop()

	utils.Debug("stomp: connected", map[string]any{"url": d.URL})
	return sc, nil
}

type stompConn struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	mu       sync.Mutex
	receipts map[string]chan struct{}
	err      error

	messages  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *stompConn) connect(ctx context.Context, host, token string, timeout time.Duration) error {
	f := frame.New(frame.CONNECT,
		frame.AcceptVersion, "1.2",
		frame.Host, host,
		frame.HeartBeat, "0,0",
		"Authorization", "Bearer "+token,
	)
	if err := s.write(ctx, f); err != nil {
		return fmt.Errorf("stomp: %w: send CONNECT: %v", auctionerrors.ErrTransport, err)
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	s.ws.SetReadDeadline(deadline)
	defer s.ws.SetReadDeadline(time.Time{})

	for {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			return fmt.Errorf("stomp: %w: waiting for CONNECTED: %v", auctionerrors.ErrHandshake, err)
		}
		frames, err := decodeFrames(data)
		if err != nil {
			return fmt.Errorf("stomp: %w: %v", auctionerrors.ErrHandshake, err)
		}
		for _, f := range frames {
			switch f.Command {
			case frame.CONNECTED:
				return nil
			case frame.ERROR:
				return fmt.Errorf("stomp: %w: %s", auctionerrors.ErrHandshake, errorText(f))
			}
		}
	}
}

func (s *stompConn) Subscribe(ctx context.Context, destination string, receipt bool) error {
	id := uuid.NewString()
	f := frame.New(frame.SUBSCRIBE,
		frame.Id, id,
		frame.Destination, destination,
		frame.Ack, "auto",
	)
	if !receipt {
		return s.write(ctx, f)
	}

	receiptID := "sub-" + id
	confirmed := make(chan struct{})
	s.mu.Lock()
	s.receipts[receiptID] = confirmed
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.receipts, receiptID)
		s.mu.Unlock()
	}()

	f.Header.Add(frame.Receipt, receiptID)
	if err := s.write(ctx, f); err != nil {
		return err
	}

	select {
	case <-confirmed:
		return nil
	case <-s.done:
		if err := s.Err(); err != nil {
			return err
		}
		return auctionerrors.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *stompConn) Send(ctx context.Context, destination string, body []byte) error {
	f := frame.New(frame.SEND,
		frame.Destination, destination,
		frame.ContentType, "application/json",
	)
	f.Body = body
	return s.write(ctx, f)
}

func (s *stompConn) Messages() <-chan []byte { return s.messages }

func (s *stompConn) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close sends DISCONNECT and closes the socket.
func (s *stompConn) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.write(context.Background(), frame.New(frame.DISCONNECT))
		_ = s.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		err = s.ws.Close()
	})
	return err
}

func (s *stompConn) write(ctx context.Context, f *frame.Frame) error {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return err
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.ws.SetWriteDeadline(deadline)
	if err := s.ws.WriteMessage(websocket.TextMessage, buf.Bytes()); err != nil {
		return fmt.Errorf("stomp: %w: write %s: %v", auctionerrors.ErrTransport, f.Command, err)
	}
	return nil
}

func (s *stompConn) readPump() {
	defer close(s.messages)

	for {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.setErr(errors.New("connection closed by broker"))
			} else {
				s.setErr(err)
			}
			return
		}
		s.ws.SetReadDeadline(time.Now().Add(pongWait))

		frames, err := decodeFrames(data)
		if err != nil {
			utils.Warn("stomp: undecodable frame", map[string]any{"error": err.Error()})
			continue
		}
		for _, f := range frames {
			switch f.Command {
			case frame.MESSAGE:
				select {
				case s.messages <- f.Body:
				case <-s.done:
					return
				}
			case frame.RECEIPT:
				s.confirm(f.Header.Get(frame.ReceiptId))
			case frame.ERROR:
				s.setErr(fmt.Errorf("%w: broker error: %s", auctionerrors.ErrTransport, errorText(f)))
				_ = s.ws.Close()
				return
			}
		}
	}
}

func (s *stompConn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				utils.Debug("stomp: ping failed", map[string]any{"error": err.Error()})
				return
			}
		}
	}
}

func (s *stompConn) confirm(receiptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.receipts[receiptID]; ok {
		close(ch)
		delete(s.receipts, receiptID)
	}
}

func (s *stompConn) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// decodeFrames parses every frame in one WebSocket message. Heart-beat EOLs are skipped.
func decodeFrames(data []byte) ([]*frame.Frame, error) {
	r := frame.NewReader(bytes.NewReader(data))
	var out []*frame.Frame
	for {
		f, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		if f != nil {
			out = append(out, f)
		}
	}
}

func errorText(f *frame.Frame) string {
	if msg := f.Header.Get(frame.Message); msg != "" {
		return msg
	}
	if len(f.Body) > 0 {
		return string(f.Body)
	}
	return "unknown broker error"
}
