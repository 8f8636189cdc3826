package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipscan/scanner-api/internal/model"
	"shipscan/scanner-api/internal/store"
)

func startHub(t *testing.T, s *store.MemoryStore) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(s.Get, zerolog.Nop())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeJob(w, r, r.URL.Query().Get("id"))
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?id=" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readJob(t *testing.T, conn *websocket.Conn) model.ScanJob {
	t.Helper()
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, messageTypeScan, msg.Type)
	return msg.Data
}

func TestHubStreamsUntilTerminal(t *testing.T) {
	s := store.NewMemoryStore()
	hub, srv := startHub(t, s)
	job := s.Create("https://a.test")

	conn := dial(t, srv, job.ID)
	first := readJob(t, conn)
	assert.Equal(t, model.StatusPending, first.Status)

	job.Status = model.StatusRunning
	job, err := s.Update(job)
	require.NoError(t, err)
	hub.Publish(job)
	assert.Equal(t, model.StatusRunning, readJob(t, conn).Status)

	job.Status = model.StatusComplete
	job.AISummary = "done"
	job, err = s.Update(job)
	require.NoError(t, err)
	hub.Publish(job)

	last := readJob(t, conn)
	assert.Equal(t, model.StatusComplete, last.Status)
	assert.Equal(t, "done", last.AISummary)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "expected normal close, got %v", err)
}

func TestHubIgnoresOtherJobs(t *testing.T) {
	s := store.NewMemoryStore()
	hub, srv := startHub(t, s)
	mine := s.Create("https://a.test")
	other := s.Create("https://b.test")

	conn := dial(t, srv, mine.ID)
	readJob(t, conn)

	other.Status = model.StatusRunning
	other, err := s.Update(other)
	require.NoError(t, err)
	hub.Publish(other)
	mine.Status = model.StatusRunning
	mine, err = s.Update(mine)
	require.NoError(t, err)
	hub.Publish(mine)

	got := readJob(t, conn)
	assert.Equal(t, mine.ID, got.ID)
	assert.Equal(t, model.StatusRunning, got.Status)
}

func TestHubTerminalSnapshotCloses(t *testing.T) {
	s := store.NewMemoryStore()
	_, srv := startHub(t, s)
	job := s.Create("https://a.test")
	job.Status = model.StatusError
	job.ErrorMessage = "boom"
	_, err := s.Update(job)
	require.NoError(t, err)

	conn := dial(t, srv, job.ID)
	got := readJob(t, conn)
	assert.Equal(t, model.StatusError, got.Status)

	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestHubUnknownJobCloses(t *testing.T) {
	_, srv := startHub(t, store.NewMemoryStore())

	conn := dial(t, srv, "missing")
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func statusRank(s model.Status) int {
	switch s {
	case model.StatusPending:
		return 0
	case model.StatusRunning:
		return 1
	default:
		return 2
	}
}

// A queued update that is older than the snapshot a client registered with
// must not reach that client.
func TestHubNeverSendsOlderState(t *testing.T) {
	for i := 0; i < 20; i++ {
		s := store.NewMemoryStore()
		hub := NewHub(s.Get, zerolog.Nop())
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hub.ServeJob(w, r, r.URL.Query().Get("id"))
		}))

		job := s.Create("https://a.test")
		conn := dial(t, srv, job.ID)
		hub.Publish(job)

		job.Status = model.StatusRunning
		job, err := s.Update(job)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		go hub.Run(ctx)

		job.Status = model.StatusComplete
		job, err = s.Update(job)
		require.NoError(t, err)
		hub.Publish(job)

		var seen []model.Status
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var msg Message
			require.NoError(t, json.Unmarshal(data, &msg))
			seen = append(seen, msg.Data.Status)
		}

		require.NotEmpty(t, seen)
		for j := 1; j < len(seen); j++ {
			require.LessOrEqual(t, statusRank(seen[j-1]), statusRank(seen[j]), "status went backwards: %v", seen)
		}
		assert.Equal(t, model.StatusComplete, seen[len(seen)-1])

		cancel()
		srv.Close()
	}
}

func TestPublishKeepsTerminalUpdates(t *testing.T) {
	hub := NewHub(store.NewMemoryStore().Get, zerolog.Nop())
	for i := 0; i < cap(hub.publish); i++ {
		hub.Publish(model.ScanJob{ID: "filler", Status: model.StatusRunning})
	}

	// Intermediate updates are dropped without blocking.
	hub.Publish(model.ScanJob{ID: "late", Status: model.StatusRunning})
	require.Len(t, hub.publish, cap(hub.publish))

	published := make(chan struct{})
	go func() {
		hub.Publish(model.ScanJob{ID: "final", Status: model.StatusComplete})
		close(published)
	}()

	select {
	case <-published:
		t.Fatal("terminal update returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	<-hub.publish
	select {
	case <-published:
	case <-time.After(5 * time.Second):
		t.Fatal("terminal update was not queued after room appeared")
	}

	var final bool
	for len(hub.publish) > 0 {
		job := <-hub.publish
		assert.NotEqual(t, "late", job.ID)
		if job.ID == "final" {
			final = true
		}
	}
	assert.True(t, final, "terminal update missing from queue")
}

func TestPublishTerminalReturnsAfterStop(t *testing.T) {
	hub := NewHub(store.NewMemoryStore().Get, zerolog.Nop())
	for i := 0; i < cap(hub.publish); i++ {
		hub.Publish(model.ScanJob{ID: "filler", Status: model.StatusRunning})
	}
	close(hub.done)

	published := make(chan struct{})
	go func() {
		hub.Publish(model.ScanJob{ID: "final", Status: model.StatusError})
		close(published)
	}()

	select {
	case <-published:
	case <-time.After(5 * time.Second):
		t.Fatal("terminal publish blocked after the hub stopped")
	}
}
