package ledger

import (
	"sync/atomic"
	"time"
)

// Clock reports the current ledger time in slots.
type Clock interface {
	Slot() uint64
}

// ManualClock is a Clock advanced explicitly.
type ManualClock struct {
	slot atomic.Uint64
}

func NewManualClock(slot uint64) *ManualClock {
	c := &ManualClock{}
	c.slot.Store(slot)
	return c
}

func (c *ManualClock) Slot() uint64 { return c.slot.Load() }

// Set moves the clock to slot.
func (c *ManualClock) Set(slot uint64) { c.slot.Store(slot) }

// Advance moves the clock forward by n slots and returns the new slot.
func (c *ManualClock) Advance(n uint64) uint64 { return c.slot.Add(n) }

// SlotClock derives slots from wall time elapsed since genesis.
type SlotClock struct {
	genesis  time.Time
	duration time.Duration
	now      func() time.Time
}

// NewSlotClock starts slot 0 at genesis, ticking every duration.
func NewSlotClock(genesis time.Time, duration time.Duration) *SlotClock {
	if duration <= 0 {
		duration = DefaultSlotDuration
	}
	return &SlotClock{genesis: genesis, duration: duration, now: time.Now}
}

// DefaultSlotDuration matches the nominal slot time of a Solana cluster.
const DefaultSlotDuration = 400 * time.Millisecond

func (c *SlotClock) Slot() uint64 {
	elapsed := c.now().Sub(c.genesis)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / c.duration)
}
