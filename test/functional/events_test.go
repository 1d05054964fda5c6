//go:build functional

package functional

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vyrodovalexey/itemservice/internal/model"
)

// EventClient wraps an event feed connection for testing.
type EventClient struct {
	conn *websocket.Conn
	t    *testing.T
}

// NewEventClient connects to the item event feed.
func NewEventClient(t *testing.T, url string) (*EventClient, error) {
	t.Helper()

	dialer := websocket.Dialer{
		HandshakeTimeout: DefaultWebSocketTimeout,
	}

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}

	return &EventClient{conn: conn, t: t}, nil
}

// ReadEvent reads a single item event.
func (c *EventClient) ReadEvent(timeout time.Duration) (*model.ItemEvent, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	var event model.ItemEvent
	if err := c.conn.ReadJSON(&event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Close closes the connection.
func (c *EventClient) Close() error {
	return c.conn.Close()
}

// waitForSubscribers gives the hub time to register freshly dialed clients.
func waitForSubscribers() {
	time.Sleep(100 * time.Millisecond)
}

// TestFunctional_EV_001_CreateAndUpdateEvents tests that writes reach subscribers.
// FT-EV-001: Create then update publishes item_created then item_updated
func TestFunctional_EV_001_CreateAndUpdateEvents(t *testing.T) {
	LogTestStart(t, "FT-EV-001", "Create and update events")
	defer LogTestEnd(t, "FT-EV-001")

	ts := NewTestServer(t)
	ts.Start()
	defer ts.Stop()

	events, err := NewEventClient(t, ts.WSURL+"/ws/items")
	if err != nil {
		t.Fatalf("Failed to connect to event feed: %v", err)
	}
	defer events.Close()
	waitForSubscribers()

	client := NewHTTPClient(t, ts.BaseURL)
	ctx, cancel := context.WithTimeout(context.Background(), DefaultRequestTimeout)
	defer cancel()

	// Act
	resp, err := client.PostForm(ctx, "/items/add", ItemForm("itemA", "10000", "10"))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	AssertStatusCode(t, resp, http.StatusSeeOther)

	resp, err = client.PostForm(ctx, "/items/1/edit", ItemForm("itemA2", "15000", "5"))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	AssertStatusCode(t, resp, http.StatusSeeOther)

	// Assert
	created, err := events.ReadEvent(DefaultWebSocketTimeout)
	if err != nil {
		t.Fatalf("Failed to read created event: %v", err)
	}
	if created.Type != model.EventTypeItemCreated || created.Item == nil || created.Item.ItemName != "itemA" {
		t.Errorf("Unexpected created event: %+v", created)
	}

	updated, err := events.ReadEvent(DefaultWebSocketTimeout)
	if err != nil {
		t.Fatalf("Failed to read updated event: %v", err)
	}
	if updated.Type != model.EventTypeItemUpdated || updated.Item == nil || updated.Item.ID != 1 {
		t.Errorf("Unexpected updated event: %+v", updated)
	}
	if updated.Item != nil && updated.Item.ItemName != "itemA2" {
		t.Errorf("Expected updated name itemA2, got %s", updated.Item.ItemName)
	}
}

// TestFunctional_EV_002_FailedCreateNoEvent tests that rejected forms publish nothing.
// FT-EV-002: Invalid create publishes no event
func TestFunctional_EV_002_FailedCreateNoEvent(t *testing.T) {
	LogTestStart(t, "FT-EV-002", "Failed create publishes nothing")
	defer LogTestEnd(t, "FT-EV-002")

	ts := NewTestServer(t)
	ts.Start()
	defer ts.Stop()

	events, err := NewEventClient(t, ts.WSURL+"/ws/items")
	if err != nil {
		t.Fatalf("Failed to connect to event feed: %v", err)
	}
	defer events.Close()
	waitForSubscribers()

	client := NewHTTPClient(t, ts.BaseURL)
	ctx, cancel := context.WithTimeout(context.Background(), DefaultRequestTimeout)
	defer cancel()

	// Act
	resp, err := client.PostForm(ctx, "/items/add", ItemForm("", "abc", "1"))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	AssertStatusCode(t, resp, http.StatusBadRequest)

	// Assert
	if event, err := events.ReadEvent(300 * time.Millisecond); err == nil {
		t.Errorf("Expected no event, got %+v", event)
	}
}

// TestFunctional_EV_003_ShutdownClosesFeed tests that shutdown closes subscribers.
// FT-EV-003: Server shutdown closes the event feed
func TestFunctional_EV_003_ShutdownClosesFeed(t *testing.T) {
	LogTestStart(t, "FT-EV-003", "Shutdown closes feed")
	defer LogTestEnd(t, "FT-EV-003")

	ts := NewTestServer(t)
	ts.Start()

	events, err := NewEventClient(t, ts.WSURL+"/ws/items")
	if err != nil {
		ts.Stop()
		t.Fatalf("Failed to connect to event feed: %v", err)
	}
	defer events.Close()
	waitForSubscribers()

	// Act
	ts.Stop()

	// Assert
	if _, err := events.ReadEvent(DefaultWebSocketTimeout); err == nil {
		t.Error("Expected the feed to be closed after shutdown")
	}
}
