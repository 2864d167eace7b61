package health

import (
	"context"
	"fmt"

	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
)

type StorageStateSource interface {
	State() types.StorageState
}

// StorageChecker is healthy on either backend. Fallback is reported in the
// message because it is permanent for the life of the process.
func StorageChecker(source StorageStateSource) types.HealthChecker {
	return func(ctx context.Context) types.HealthCheck {
		state := source.State()
		check := types.HealthCheck{
			Details: map[string]interface{}{"state": state.String()},
		}

		switch state {
		case types.StatePrimary:
			check.Status = types.StatusHealthy
		case types.StateFallback:
			check.Status = types.StatusHealthy
			check.Message = "serving from fallback store"
		default:
			check.Status = types.StatusUnknown
			check.Message = "storage not initialized"
		}
		return check
	}
}

type PendingSource interface {
	Pending() int
}

// CoordinatorChecker turns unhealthy when more than limit requests are
// pending. limit <= 0 disables the bound.
func CoordinatorChecker(source PendingSource, limit int) types.HealthChecker {
	return func(ctx context.Context) types.HealthCheck {
		pending := source.Pending()
		check := types.HealthCheck{
			Status:  types.StatusHealthy,
			Details: map[string]interface{}{"pending": pending},
		}

		if limit > 0 && pending > limit {
			check.Status = types.StatusUnhealthy
			check.Message = fmt.Sprintf("%d pending requests exceed limit %d", pending, limit)
		}
		return check
	}
}

type HashSource interface {
	Algorithm() string
	Degraded() bool
}

func HashChecker(source HashSource) types.HealthChecker {
	return func(ctx context.Context) types.HealthCheck {
		check := types.HealthCheck{
			Status:  types.StatusHealthy,
			Details: map[string]interface{}{"algorithm": source.Algorithm()},
		}
		if source.Degraded() {
			check.Message = "content hash degraded to non-cryptographic fallback"
		}
		return check
	}
}
