package callsession

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ReserveThenConnectKeepsReservation(t *testing.T) {
	r := NewRegistry()
	r.Reserve(Call{CallConnectionID: "c1", Scenario: ScenarioIVR, Target: "+14255550123"})

	got, ok := r.Get("c1")
	require.True(t, ok)
	assert.False(t, got.Connected)
	assert.False(t, got.CreatedAt.IsZero())

	connected := r.Connect(Call{CallConnectionID: "c1", ServerCallID: "s1", Target: "+10000000000"})
	assert.True(t, connected.Connected)
	assert.Equal(t, "s1", connected.ServerCallID)
	assert.Equal(t, ScenarioIVR, connected.Scenario)
	assert.Equal(t, "+14255550123", connected.Target)
}

func TestRegistry_ConnectUnknownCreates(t *testing.T) {
	r := NewRegistry()

	call := r.Connect(Call{CallConnectionID: "c2", Scenario: ScenarioVoiceAgent, Target: "4:+1425"})
	assert.Equal(t, ScenarioVoiceAgent, call.Scenario)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	r.Connect(Call{CallConnectionID: "c1"})

	_, ok := r.Remove("c1")
	assert.True(t, ok)
	_, ok = r.Remove("c1")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_ReserveIgnoresEmptyID(t *testing.T) {
	r := NewRegistry()
	r.Reserve(Call{})
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_ConcurrentCalls(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("call-%d", i)
			r.Connect(Call{CallConnectionID: id})
			_, _ = r.Get(id)
			if i%2 == 0 {
				r.Remove(id)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, r.Len())
}
