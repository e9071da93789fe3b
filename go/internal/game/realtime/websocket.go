package realtime

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSConfig holds websocket feed settings.
type WSConfig struct {
	URL       string // e.g. ws://localhost:8081/ws/sessions/<id>
	SessionID string
	Header    http.Header

	ReadTimeout      time.Duration // pong wait
	WriteTimeout     time.Duration
	PingInterval     time.Duration // must be below ReadTimeout
	MaxMessageSize   int64
	HandshakeTimeout time.Duration
	ReconnectMin     time.Duration
	ReconnectMax     time.Duration
}

// DefaultWSConfig returns default websocket feed configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     54 * time.Second,
		MaxMessageSize:   64 * 1024,
		HandshakeTimeout: 10 * time.Second,
		ReconnectMin:     500 * time.Millisecond,
		ReconnectMax:     30 * time.Second,
	}
}

// WSFeed reads session events from a websocket gateway. It redials with
// backoff after a drop and asks the sink to resynchronise once it is back.
type WSFeed struct {
	cfg    WSConfig
	sink   Sink
	dialer *websocket.Dialer

	mu        sync.Mutex
	cancel    context.CancelFunc
	connected atomic.Bool
}

func NewWSFeed(sink Sink, cfg WSConfig) *WSFeed {
	return &WSFeed{
		cfg:  cfg,
		sink: sink,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

// Start dials the gateway and reads until ctx is cancelled or Stop is called.
func (f *WSFeed) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	f.cancel = cancel
	f.mu.Unlock()
	defer cancel()

	log.Info().
		Str("url", f.cfg.URL).
		Str("session_id", f.cfg.SessionID).
		Msg("starting websocket session feed")

	wait := f.cfg.ReconnectMin
	resync := false
	for {
		conn, _, err := f.dialer.DialContext(ctx, f.cfg.URL, f.cfg.Header)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().
				Err(err).
				Str("url", f.cfg.URL).
				Dur("retry_in", wait).
				Msg("failed to dial websocket gateway")
			resync = true
			if !sleepCtx(ctx, wait) {
				return nil
			}
			wait = min(wait*2, f.cfg.ReconnectMax)
			continue
		}

		wait = f.cfg.ReconnectMin
		if resync {
			f.sink.HandleReconnect(ctx)
		}

		f.connected.Store(true)
		f.serve(ctx, conn)
		f.connected.Store(false)
		if ctx.Err() != nil {
			log.Info().Msg("websocket session feed shutting down")
			return nil
		}
		resync = true
	}
}

// Stop ends the feed started by Start.
func (f *WSFeed) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
	}
	return nil
}

// IsConnected reports whether a gateway connection is open.
func (f *WSFeed) IsConnected() bool {
	return f.connected.Load()
}

// serve runs the pumps for one connection and returns once it is gone.
func (f *WSFeed) serve(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.writePump(ctx, conn, done)
	}()

	f.readPump(ctx, conn)
	close(done)
	wg.Wait()
	conn.Close()
}

// readPump handles reading messages from the websocket connection
func (f *WSFeed) readPump(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(f.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && ctx.Err() == nil {
				log.Error().
					Err(err).
					Str("session_id", f.cfg.SessionID).
					Msg("unexpected websocket close error")
			}
			return
		}

		if err := deliver(ctx, f.sink, f.cfg.SessionID, message); err != nil {
			log.Error().
				Err(err).
				Str("session_id", f.cfg.SessionID).
				Msg("failed to handle websocket message")
		}
		conn.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout))
	}
}

// writePump keeps the connection alive with pings and closes it on shutdown.
// It is the only writer on conn.
func (f *WSFeed) writePump(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(f.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(f.cfg.WriteTimeout))
			conn.Close()
			return

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(f.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("session_id", f.cfg.SessionID).
					Msg("failed to send ping")
				conn.Close()
				return
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
