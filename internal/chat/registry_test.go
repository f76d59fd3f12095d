package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAddOverwrites(t *testing.T) {
	registry := NewRegistry()
	first, second := &fakeChannel{}, &fakeChannel{}

	_, replaced := registry.Add("alice", first)
	require.False(t, replaced)
	_, replaced = registry.Add("alice", second)
	require.True(t, replaced)

	got, err := registry.Get("alice")
	require.NoError(t, err)
	require.Same(t, second, got)
	require.Equal(t, 1, registry.Len())
}

func TestRegistryGetMissing(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get("nobody")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	registry.Add("alice", &fakeChannel{})

	registry.Remove("alice")
	registry.Remove("alice")
	registry.Remove("never-joined")

	_, err := registry.Get("alice")
	require.ErrorIs(t, err, ErrNotFound)
	require.Zero(t, registry.Len())
}

func TestRegistryRemoveIfKeepsReplacement(t *testing.T) {
	registry := NewRegistry()
	old, replacement := &fakeChannel{}, &fakeChannel{}
	oldReg, _ := registry.Add("alice", old)
	newReg, _ := registry.Add("alice", replacement)

	require.False(t, registry.RemoveIf(oldReg))
	got, err := registry.Get("alice")
	require.NoError(t, err)
	require.Same(t, replacement, got)

	require.True(t, registry.RemoveIf(newReg))
	require.False(t, registry.RemoveIf(newReg))
	require.False(t, registry.RemoveIf(nil))
}

// queueChannel carries a slice, so its values cannot be compared with ==.
type queueChannel struct {
	sink []string
}

func (queueChannel) Send(string) error { return nil }

func TestRegistryRemoveIfWithUncomparableChannels(t *testing.T) {
	registry := NewRegistry()

	require.NotPanics(t, func() {
		oldReg, _ := registry.Add("alice", queueChannel{})
		newReg, replaced := registry.Add("alice", queueChannel{sink: []string{"queued"}})
		require.True(t, replaced)

		require.False(t, registry.RemoveIf(oldReg))
		require.Equal(t, 1, registry.Len())
		require.True(t, registry.RemoveIf(newReg))
	})
	require.Zero(t, registry.Len())
}

func TestRegistrySnapshotAndNames(t *testing.T) {
	registry := NewRegistry()
	registry.Add("carol", &fakeChannel{})
	registry.Add("alice", &fakeChannel{})
	registry.Add("bob", &fakeChannel{})

	require.Equal(t, []string{"alice", "bob", "carol"}, registry.Names())
	require.Len(t, registry.Snapshot(), 3)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	registry := NewRegistry()
	channels := []*fakeChannel{{}, {}}
	valid := map[Channel]bool{channels[0]: true, channels[1]: true}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				name := fmt.Sprintf("user-%d", j%4)
				switch (worker + j) % 3 {
				case 0:
					registry.Add(name, channels[j%2])
				case 1:
					registry.Remove(name)
				default:
					ch, err := registry.Get(name)
					if err != nil {
						assert.ErrorIs(t, err, ErrNotFound)
						continue
					}
					assert.True(t, valid[ch], "get returned a channel that was never added")
				}
			}
		}(i)
	}
	wg.Wait()

	for _, entry := range registry.Snapshot() {
		require.True(t, valid[entry.Channel])
	}
}
