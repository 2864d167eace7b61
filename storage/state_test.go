package storage

import (
	"context"
	"testing"

	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

func TestNextState(t *testing.T) {
	tests := []struct {
		from  types.StorageState
		event Event
		want  types.StorageState
	}{
		{types.StateUninitialized, EventPrimaryOpened, types.StatePrimary},
		{types.StateUninitialized, EventPrimaryUnavailable, types.StateFallback},
		{types.StateUninitialized, EventNone, types.StateUninitialized},
		{types.StatePrimary, EventTransactionFailed, types.StateFallback},
		{types.StatePrimary, EventPrimaryUnavailable, types.StateFallback},
		{types.StatePrimary, EventPrimaryOpened, types.StatePrimary},
		{types.StatePrimary, EventNone, types.StatePrimary},
		{types.StateFallback, EventPrimaryOpened, types.StateFallback},
		{types.StateFallback, EventTransactionFailed, types.StateFallback},
		{types.StateFallback, EventNone, types.StateFallback},
	}

	for _, tt := range tests {
		if got := nextState(tt.from, tt.event); got != tt.want {
			t.Errorf("nextState(%s, %s) = %s, want %s", tt.from, tt.event, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Event
	}{
		{"nil", nil, EventNone},
		{"unavailable", types.Errorf(types.ErrBackendUnavailable, "open"), EventPrimaryUnavailable},
		{"transaction", types.WrapError(types.ErrTransactionFailure, "put"), EventTransactionFailed},
		{"serialization", types.Errorf(types.ErrSerializationFailure, "bad payload"), EventNone},
		{"cancelled", context.Canceled, EventNone},
		{"unknown collection", types.ErrCollectionUnknown, EventNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Fatalf("classify = %s, want %s", got, tt.want)
			}
		})
	}
}
