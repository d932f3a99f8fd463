package bridge

import (
	"testing"
	"time"

	"craftbridge/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func receive(t *testing.T, events <-chan domain.Event) domain.Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "event stream closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return domain.Event{}
	}
}

func TestBrokerPreservesOrderPerSubscriber(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	first, cancelFirst := b.Subscribe()
	defer cancelFirst()
	second, cancelSecond := b.Subscribe()
	defer cancelSecond()

	// nobody reads while publishing
	names := []string{"Notch", "Herobrine", "Alex", "Steve"}
	for _, name := range names {
		b.Publish(domain.PlayerJoined(name))
	}
	b.Publish(domain.Closed(0))

	for _, events := range []<-chan domain.Event{first, second} {
		for _, name := range names {
			assert.Equal(t, name, receive(t, events).Player)
		}
		assert.Equal(t, domain.EventClosed, receive(t, events).Type)
	}
}

func TestBrokerCancelClosesStream(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	events, cancel := b.Subscribe()
	cancel()
	cancel()

	_, ok := <-events
	assert.False(t, ok)

	b.Publish(domain.PlayerLeft("Notch"))
}

func TestBrokerCloseEndsSubscriptions(t *testing.T) {
	b := NewBroker()
	events, cancel := b.Subscribe()

	b.Close()
	_, ok := <-events
	assert.False(t, ok)
	cancel()

	late, _ := b.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}
