package session

import (
	"context"
	"time"
)

// Event is something the device was just asked to do.
type Event int

const (
	Acquired Event = iota
	AppQuit
	CommandIssued
)

func (e Event) String() string {
	switch e {
	case Acquired:
		return "acquired"
	case AppQuit:
		return "app quit"
	case CommandIssued:
		return "command issued"
	}
	return "unknown"
}

// Settler waits until the device has acted on an event. The receiver does
// not acknowledge most commands, so every wait goes through here.
type Settler interface {
	Settle(ctx context.Context, e Event) error
}

// FixedInterval waits a fixed time per event.
type FixedInterval struct {
	Acquired      time.Duration
	AppQuit       time.Duration
	CommandIssued time.Duration
}

func DefaultSettler() FixedInterval {
	return FixedInterval{
		Acquired:      1 * time.Second,
		AppQuit:       5 * time.Second,
		CommandIssued: 3 * time.Second,
	}
}

func (f FixedInterval) Settle(ctx context.Context, e Event) error {
	var d time.Duration
	switch e {
	case Acquired:
		d = f.Acquired
	case AppQuit:
		d = f.AppQuit
	case CommandIssued:
		d = f.CommandIssued
	}
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
