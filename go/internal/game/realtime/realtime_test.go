package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/doodleduel/go/internal/game/events"
	"github.com/mcdev12/doodleduel/go/internal/models"
)

type fakeSink struct {
	mu         sync.Mutex
	events     []events.SessionEvent
	reconnects int
	err        error
}

func (s *fakeSink) HandleEvent(_ context.Context, event events.SessionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *fakeSink) HandleReconnect(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
}

func (s *fakeSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events), s.reconnects
}

func rawEvent(t *testing.T, sessionID string) []byte {
	t.Helper()
	payload := events.VoteChangedPayload{
		Op: events.OpInsert,
		Record: models.Vote{
			ID:           "v1",
			SessionID:    sessionID,
			VoterID:      "u1",
			SubmissionID: "s1",
		},
	}
	event, err := events.NewEvent(sessionID, events.EventTypeVoteChanged, payload, time.Now())
	require.NoError(t, err)
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return raw
}

func TestDeliver(t *testing.T) {
	ctx := context.Background()

	t.Run("forwards events for the session", func(t *testing.T) {
		sink := &fakeSink{}
		require.NoError(t, deliver(ctx, sink, "sess-1", rawEvent(t, "sess-1")))
		require.Len(t, sink.events, 1)
		assert.Equal(t, events.EventTypeVoteChanged, sink.events[0].Type)
	})

	t.Run("drops other sessions", func(t *testing.T) {
		sink := &fakeSink{}
		require.NoError(t, deliver(ctx, sink, "sess-1", rawEvent(t, "sess-2")))
		assert.Empty(t, sink.events)
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		sink := &fakeSink{}
		assert.Error(t, deliver(ctx, sink, "sess-1", []byte("not json")))
		assert.Error(t, deliver(ctx, sink, "sess-1", []byte(`{"type":"VoteChanged"}`)))
		assert.Empty(t, sink.events)
	})

	t.Run("wraps sink errors", func(t *testing.T) {
		boom := errors.New("boom")
		sink := &fakeSink{err: boom}
		err := deliver(ctx, sink, "sess-1", rawEvent(t, "sess-1"))
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
	})
}

func TestNATSSubjects(t *testing.T) {
	cfg := DefaultNATSConfig()

	assert.Equal(t, "doodle.sessions.abc.rows.VoteChanged", cfg.RowSubject("abc", events.EventTypeVoteChanged))
	assert.Equal(t, "doodle.sessions.abc.rows.>", cfg.RowFilter("abc"))
	assert.Equal(t, "doodle.sessions.abc.timer", cfg.TimerSubject("abc"))
}

func TestNewNATSFeedRequiresSession(t *testing.T) {
	_, err := NewNATSFeed(&fakeSink{}, DefaultNATSConfig())
	assert.Error(t, err)

	cfg := DefaultNATSConfig()
	cfg.SessionID = "sess-1"
	_, err = NewNATSFeed(&fakeSink{}, cfg)
	assert.ErrorContains(t, err, "user id", "a session-wide consumer would split events between players")
}

func TestNATSConsumerPerPlayer(t *testing.T) {
	alice := DefaultNATSConfig()
	alice.SessionID = "sess-1"
	alice.UserID = "alice"
	bob := alice
	bob.UserID = "bob"

	assert.Equal(t, "doodle-client-sess-1-alice", alice.Consumer())
	assert.NotEqual(t, alice.Consumer(), bob.Consumer())

	alice.ConsumerName = "custom"
	assert.Equal(t, "custom", alice.Consumer())
}

func TestNATSFeedProcessMessage(t *testing.T) {
	sink := &fakeSink{}
	f := &NATSFeed{sink: sink, config: NATSConfig{SessionID: "sess-1"}}

	sentAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := encodeTimerSync(events.TimerSyncPayload{
		SessionID: "sess-1",
		SenderID:  "peer",
		Phase:     models.PhaseDrawing,
		Remaining: 42,
		Total:     90,
		SentAt:    sentAt,
	})
	require.NoError(t, err)

	require.NoError(t, f.processMessage(context.Background(), "doodle.sessions.sess-1.timer", data))
	require.Len(t, sink.events, 1)

	event := sink.events[0]
	assert.Equal(t, events.EventTypeTimerSync, event.Type)
	assert.True(t, sentAt.Equal(event.Timestamp))

	parsed, err := events.ParseEventPayload(event)
	require.NoError(t, err)
	payload, ok := parsed.(events.TimerSyncPayload)
	require.True(t, ok)
	assert.Equal(t, 42, payload.Remaining)
	assert.Equal(t, "peer", payload.SenderID)
}

func TestNATSFeedNotConnected(t *testing.T) {
	f := &NATSFeed{}
	assert.False(t, f.IsConnected())
}

func TestPGListenerHandleNotification(t *testing.T) {
	sink := &fakeSink{}
	l := &PGListener{sink: sink, cfg: PGListenerConfig{NotifyChannel: "doodle_session_events", SessionID: "sess-1"}}
	ctx := context.Background()

	require.NoError(t, l.handleNotification(ctx, string(rawEvent(t, "sess-1"))))
	require.NoError(t, l.handleNotification(ctx, string(rawEvent(t, "other"))))
	assert.Error(t, l.handleNotification(ctx, ""))

	n, _ := sink.counts()
	assert.Equal(t, 1, n)
}

// gateway serves one websocket per request and runs handle on it.
func gateway(t *testing.T, handle func(n int, conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	var mu sync.Mutex
	connections := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		mu.Lock()
		connections++
		n := connections
		mu.Unlock()
		handle(n, conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testWSConfig(url string) WSConfig {
	cfg := DefaultWSConfig()
	cfg.URL = "ws" + strings.TrimPrefix(url, "http")
	cfg.SessionID = "sess-1"
	cfg.ReconnectMin = 10 * time.Millisecond
	cfg.ReconnectMax = 50 * time.Millisecond
	return cfg
}

func TestWSFeedDeliversEvents(t *testing.T) {
	other, mine := rawEvent(t, "other"), rawEvent(t, "sess-1")
	srv := gateway(t, func(_ int, conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, other)
		conn.WriteMessage(websocket.TextMessage, mine)
		// hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	sink := &fakeSink{}
	feed := NewWSFeed(sink, testWSConfig(srv.URL))

	errCh := make(chan error, 1)
	go func() { errCh <- feed.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		n, _ := sink.counts()
		return n == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, feed.IsConnected())

	require.NoError(t, feed.Stop())
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop")
	}
	assert.False(t, feed.IsConnected())

	_, reconnects := sink.counts()
	assert.Zero(t, reconnects)
}

func TestWSFeedResyncsAfterDrop(t *testing.T) {
	mine := rawEvent(t, "sess-1")
	srv := gateway(t, func(n int, conn *websocket.Conn) {
		if n == 1 {
			// drop the first connection straight away
			return
		}
		conn.WriteMessage(websocket.TextMessage, mine)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	sink := &fakeSink{}
	feed := NewWSFeed(sink, testWSConfig(srv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		feed.Start(ctx)
	}()

	require.Eventually(t, func() bool {
		n, reconnects := sink.counts()
		return n == 1 && reconnects == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop")
	}
}
