// Package ircflood holds the client-side flood control policy used to pace
// outgoing IRC messages.
package ircflood

import (
	"time"

	"golang.org/x/time/rate"
)

// FloodPreventer is consulted by the sender before each write.
type FloodPreventer interface {
	// GetSendDelay returns how long the sender must wait before the next
	// message may be written. Zero or negative means it may be sent now.
	GetSendDelay() time.Duration

	// HandleMessageSent is called exactly once for every message that
	// was actually written to the transport.
	HandleMessageSent()
}

// StandardFloodPreventer allows bursts of up to MaxMessageBurst messages,
// after which one message is permitted every CounterPeriod.
type StandardFloodPreventer struct {
	MaxMessageBurst int
	CounterPeriod   time.Duration

	limiter *rate.Limiter
	now     func() time.Time
}

// NewStandardFloodPreventer returns a StandardFloodPreventer. A burst below
// one is treated as one.
func NewStandardFloodPreventer(maxMessageBurst int, counterPeriod time.Duration) *StandardFloodPreventer {
	if maxMessageBurst < 1 {
		maxMessageBurst = 1
	}
	return &StandardFloodPreventer{
		MaxMessageBurst: maxMessageBurst,
		CounterPeriod:   counterPeriod,
		limiter:         rate.NewLimiter(rate.Every(counterPeriod), maxMessageBurst),
		now:             time.Now,
	}
}

// GetSendDelay implements FloodPreventer.
func (fp *StandardFloodPreventer) GetSendDelay() time.Duration {
	limit := fp.limiter.Limit()
	if limit == rate.Inf {
		return 0
	}
	tokens := fp.limiter.TokensAt(fp.now())
	if tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tokens) / float64(limit) * float64(time.Second))
}

// HandleMessageSent implements FloodPreventer.
func (fp *StandardFloodPreventer) HandleMessageSent() {
	// a reservation always succeeds with burst >= 1; if the caller sent
	// early the bucket goes into debt and later delays grow to match
	fp.limiter.ReserveN(fp.now(), 1)
}
