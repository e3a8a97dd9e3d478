package player

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyagen/darteve/internal/models"
)

func TestManagerLifecycle(t *testing.T) {
	rec := &recorder{}
	clock := newFakeClock()
	m := NewManager(ManagerOptions{Ladder: rec.ladder("native", "clappr"), FallbackTimeout: 30 * time.Second, Clock: clock})

	s, err := m.Open(OpenRequest{
		StreamURL: stream,
		Mirrors:   []models.Mirror{{Name: "HD", URL: stream}},
	})
	require.NoError(t, err)
	_, err = uuid.Parse(s.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Len(t, s.Snapshot().Mirrors, 1)

	updates, cancel, err := m.Subscribe(s.ID())
	require.NoError(t, err)
	defer cancel()
	first := <-updates
	assert.Equal(t, StateLoading, first.State)

	clock.Advance(30 * time.Second)
	var last Snapshot
	require.Eventually(t, func() bool {
		select {
		case last = <-updates:
		default:
		}
		return last.EngineIndex == 1 && last.State == StateLoading
	}, time.Second, time.Millisecond)

	require.NoError(t, m.Close(s.ID()))
	for range updates {
	}
	_, err = m.Get(s.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Close(s.ID()), ErrSessionNotFound)
	assert.Zero(t, clock.Pending())
}

func TestManagerSubscribeUnknown(t *testing.T) {
	m := NewManager(ManagerOptions{})
	_, _, err := m.Subscribe("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerCloseAll(t *testing.T) {
	rec := &recorder{}
	m := NewManager(ManagerOptions{Ladder: rec.ladder("native"), Clock: newFakeClock()})
	for i := 0; i < 3; i++ {
		_, err := m.Open(OpenRequest{StreamURL: stream})
		require.NoError(t, err)
	}
	m.CloseAll()
	assert.Zero(t, m.Len())
	assert.Zero(t, rec.active)
}
