package cuelist

import (
	"context"
	"fmt"
	"time"

	"github.com/osc-protocol/osc-go/pkg/wire"
)

// Sender delivers one packet. A targeted service.Client satisfies it.
type Sender interface {
	Send(p wire.Packet) error
}

// Clock abstracts time for Play so tests can run sheets without real
// waits.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Play validates the sheet and sends every cue at its offset from the
// moment Play is called. A nil clock uses the system clock. Play
// returns on the first send failure or when ctx is cancelled during a
// wait.
func (s *Sheet) Play(ctx context.Context, sender Sender, clock Clock) error {
	if clock == nil {
		clock = SystemClock
	}
	if err := s.Validate(); err != nil {
		return err
	}

	start := clock.Now()
	for i := range s.Cues {
		cue := &s.Cues[i]

		wait := time.Duration(cue.At) - clock.Now().Sub(start)
		if wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-clock.After(wait):
			}
		}

		p, err := cue.Packet()
		if err != nil {
			return fmt.Errorf("cue %d: %w", i, err)
		}
		if err := sender.Send(p); err != nil {
			return fmt.Errorf("cue %d: %w", i, err)
		}
	}
	return nil
}
