package ircflood

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newTestPreventer(burst int, period time.Duration) (*StandardFloodPreventer, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	fp := NewStandardFloodPreventer(burst, period)
	fp.now = clock.Now
	return fp, clock
}

func TestBurst(t *testing.T) {
	fp, _ := newTestPreventer(4, time.Second)

	for i := 0; i < 4; i++ {
		assert.LessOrEqual(t, fp.GetSendDelay(), time.Duration(0), "message %d should be sent immediately", i)
		fp.HandleMessageSent()
	}
	assert.InDelta(t, float64(time.Second), float64(fp.GetSendDelay()), float64(time.Millisecond))
}

func TestRefill(t *testing.T) {
	fp, clock := newTestPreventer(2, time.Second)
	fp.HandleMessageSent()
	fp.HandleMessageSent()

	clock.t = clock.t.Add(500 * time.Millisecond)
	assert.InDelta(t, float64(500*time.Millisecond), float64(fp.GetSendDelay()), float64(time.Millisecond))

	clock.t = clock.t.Add(500 * time.Millisecond)
	assert.LessOrEqual(t, fp.GetSendDelay(), time.Duration(0))
}

func TestGetSendDelayDoesNotConsume(t *testing.T) {
	fp, _ := newTestPreventer(1, time.Second)
	for i := 0; i < 10; i++ {
		assert.LessOrEqual(t, fp.GetSendDelay(), time.Duration(0))
	}
}

func TestMinimumBurst(t *testing.T) {
	fp := NewStandardFloodPreventer(0, time.Second)
	assert.Equal(t, 1, fp.MaxMessageBurst)
}

var _ FloodPreventer = (*StandardFloodPreventer)(nil)
