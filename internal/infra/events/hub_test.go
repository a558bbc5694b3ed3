package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ij369/ipa-harbor-sub000/internal/domain"
)

func TestHub_FanOut(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))
	a, err := h.Subscribe(domain.DefaultChannel, 4)
	require.NoError(t, err)
	b, err := h.Subscribe(domain.DefaultChannel, 4)
	require.NoError(t, err)
	other, err := h.Subscribe("other", 4)
	require.NoError(t, err)

	ev := domain.Event{Type: domain.EventTaskCompleted, Data: `{"success":true}`}
	assert.Equal(t, 2, h.Publish(domain.DefaultChannel, ev))

	assert.Equal(t, ev, <-a.C())
	assert.Equal(t, ev, <-b.C())
	assert.Empty(t, other.C())
}

func TestHub_NoSubscribers(t *testing.T) {
	h := NewHub(nil)
	assert.Equal(t, 0, h.Publish(domain.DefaultChannel, domain.Event{Type: "x"}))
}

func TestHub_FullBufferDrops(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))
	slow, err := h.Subscribe(domain.DefaultChannel, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, h.Publish(domain.DefaultChannel, domain.Event{Type: "one"}))
	assert.Equal(t, 0, h.Publish(domain.DefaultChannel, domain.Event{Type: "two"}))

	got := <-slow.C()
	assert.Equal(t, "one", got.Type)
}

func TestSubscription_Close(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))
	sub, err := h.Subscribe("", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultChannel, sub.Channel)
	assert.Equal(t, 1, h.Subscribers(domain.DefaultChannel))

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, h.Subscribers(domain.DefaultChannel))

	_, open := <-sub.C()
	assert.False(t, open)
	assert.Equal(t, 0, h.Publish(domain.DefaultChannel, domain.Event{Type: "x"}))
}

func TestHub_Close(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))
	sub, err := h.Subscribe(domain.DefaultChannel, 1)
	require.NoError(t, err)

	h.Close()
	_, open := <-sub.C()
	assert.False(t, open)

	_, err = h.Subscribe(domain.DefaultChannel, 1)
	assert.ErrorIs(t, err, domain.ErrSubscriberClosed)
}
