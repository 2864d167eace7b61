package types

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrConfigNotFound       = errors.New("config not found")
	ErrConfigInvalidPath    = errors.New("config invalid path")
	ErrConfigParseFailed    = errors.New("config parse failed")
	ErrConfigIsNil          = errors.New("config is nil")
	ErrConfigValidateFailed = errors.New("config validate failed")
)

var (
	ErrServerNotRunning     = errors.New("server not running")
	ErrServerAlreadyRunning = errors.New("server already running")
	ErrServerStartFailed    = errors.New("server start failed")
	ErrServerStopFailed     = errors.New("server stop failed")
)

var (
	ErrBackendUnavailable   = errors.New("storage backend unavailable")
	ErrTransactionFailure   = errors.New("storage transaction failed")
	ErrSerializationFailure = errors.New("payload serialization failed")
	ErrMigrationFailure     = errors.New("legacy migration failed")
	ErrStorageUnavailable   = errors.New("all storage backends failed")
	ErrNotInitialized       = errors.New("storage not initialized")
	ErrCollectionUnknown    = errors.New("collection unknown")
	ErrRecordIDEmpty        = errors.New("record id empty")
	ErrFlatStoreTypeUnknown = errors.New("flat store type unknown")
)

var (
	ErrCacheKeyEmpty        = errors.New("cache key empty")
	ErrCacheOperationFailed = errors.New("cache operation failed")
)

var (
	ErrHashComputationFailure = errors.New("hash computation failed")
	ErrHashAlgorithmUnknown   = errors.New("hash algorithm unknown")
)

var (
	ErrMissingResult       = errors.New("missing result")
	ErrPendingRequestPanic = errors.New("pending request panicked")
	ErrDebouncerStopped    = errors.New("debouncer stopped")
	ErrBatcherClosed       = errors.New("batcher closed")
	ErrUnexpectedResult    = errors.New("unexpected result type")
)

var (
	ErrCronJobNotFound       = errors.New("cron job not found")
	ErrCronIsRunning         = errors.New("cron is running")
	ErrCronJobExists         = errors.New("cron job exists")
	ErrCronExpressionInvalid = errors.New("cron expression invalid")
	ErrCronJobFailed         = errors.New("cron job failed")
	ErrCronJobNameIsEmpty    = errors.New("cron job name is empty")
	ErrCronJobIsNil          = errors.New("cron job is nil")
	ErrCronJobTimeout        = errors.New("cron job timeout")
	ErrCronSchedulerStopped  = errors.New("cron scheduler stopped")
)

var (
	ErrMetricsTypeUnknown = errors.New("metrics type unknown")
	ErrMetricsIsDisabled  = errors.New("metrics manager is disabled")
	ErrMetricsNotRunning  = errors.New("metrics manager is not running")
)

var (
	ErrHealthIsNotRunning = errors.New("health manager is not running")
)

var (
	ErrLogFileIsEmpty      = errors.New("log file is empty")
	ErrLogFileWrongFormat  = errors.New("log file wrong format")
	ErrLoggerTypeUnknown   = errors.New("logger type unknown")
	ErrLoggerConfigInvalid = errors.New("logger config invalid")
)

var (
	ErrServiceIsRunning    = errors.New("service is running")
	ErrServiceIsNotRunning = errors.New("service is not running")
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidState     = errors.New("invalid state")
)

func Errorf(baseErr error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", baseErr, fmt.Sprintf(format, args...))
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// NewError records a stack trace at the call site; logger.ErrorWithErrStack prints it.
func NewError(message string) error {
	return errors.New(message)
}

func NewErrorf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}

func IsError(err, target error) bool {
	return errors.Is(err, target)
}
