package storage

import (
	"context"

	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

type Event int

const (
	EventNone Event = iota
	EventPrimaryOpened
	EventPrimaryUnavailable
	EventTransactionFailed
)

func (e Event) String() string {
	switch e {
	case EventPrimaryOpened:
		return "primary_opened"
	case EventPrimaryUnavailable:
		return "primary_unavailable"
	case EventTransactionFailed:
		return "transaction_failed"
	default:
		return "none"
	}
}

// nextState is the only place the backend selection policy lives.
// Fallback is absorbing: nothing moves the facade back to the primary.
func nextState(current types.StorageState, event Event) types.StorageState {
	switch current {
	case types.StateUninitialized:
		switch event {
		case EventPrimaryOpened:
			return types.StatePrimary
		case EventPrimaryUnavailable, EventTransactionFailed:
			return types.StateFallback
		}
	case types.StatePrimary:
		switch event {
		case EventPrimaryUnavailable, EventTransactionFailed:
			return types.StateFallback
		}
	}
	return current
}

// classify maps a backend error to the event it represents. Caller errors,
// serialization failures and cancellations never move the state machine.
func classify(err error) Event {
	switch {
	case err == nil:
		return EventNone
	case types.IsError(err, context.Canceled), types.IsError(err, context.DeadlineExceeded):
		return EventNone
	case types.IsError(err, types.ErrSerializationFailure):
		return EventNone
	case types.IsError(err, types.ErrBackendUnavailable):
		return EventPrimaryUnavailable
	case types.IsError(err, types.ErrTransactionFailure):
		return EventTransactionFailed
	default:
		return EventNone
	}
}
