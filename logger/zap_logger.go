package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ratneshs230/Digital-Courtroom-sub001/types"
	"github.com/ratneshs230/Digital-Courtroom-sub001/utils"
)

// Settings is the zap-specific part of the logger section.
type Settings struct {
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
	File   string `yaml:"file" json:"file"`
}

func NewDefaultLogger(config *types.LoggerConfig) (types.Logger, error) {
	settings := &Settings{Format: "console", Output: "stdout"}
	if config.Config != nil {
		if err := utils.UnmarshalConfig(config.Config, settings); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal logger config")
		}
	}

	zl, err := buildZapLogger(parseLogLevel(config.Level), settings)
	if err != nil {
		return nil, types.WrapError(err, "failed to create logger")
	}

	l := NewZapWrapper(zl)
	l.Info("Logger initialized",
		zap.String("level", config.Level),
		zap.String("format", settings.Format),
		zap.String("output", settings.Output))
	return l, nil
}

func buildZapLogger(level zapcore.Level, settings *Settings) (*zap.Logger, error) {
	outputs, errorOutputs, err := sinkPaths(settings)
	if err != nil {
		return nil, err
	}

	sink, _, err := zap.Open(outputs...)
	if err != nil {
		return nil, err
	}
	errorSink, _, err := zap.Open(errorOutputs...)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(newEncoder(settings.Format), sink, zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddCaller(), zap.ErrorOutput(errorSink)), nil
}

func newEncoder(format string) zapcore.Encoder {
	if format == "json" {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(cfg)
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(fmt.Sprintf("%s:%d", caller.File, caller.Line))
	}
	return zapcore.NewConsoleEncoder(cfg)
}

func sinkPaths(settings *Settings) ([]string, []string, error) {
	switch settings.Output {
	case "stderr":
		return []string{"stderr"}, []string{"stderr"}, nil
	case "file":
		if settings.File == "" {
			break
		}
		if err := ensureLogDir(settings.File); err != nil {
			return nil, nil, err
		}
		return []string{settings.File}, []string{settings.File}, nil
	}
	return []string{"stdout"}, []string{"stderr"}, nil
}

func parseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// ensureLogDir requires a path with a directory part and creates it.
func ensureLogDir(logFile string) error {
	if logFile == "" {
		return types.ErrLogFileIsEmpty
	}
	if !strings.ContainsRune(logFile, filepath.Separator) {
		return types.ErrLogFileWrongFormat
	}
	return types.WrapError(os.MkdirAll(filepath.Dir(logFile), 0755), "access denied to log directory")
}

// ZapWrapper adapts *zap.Logger to types.Logger.
type ZapWrapper struct {
	Logger *zap.Logger
}

func NewZapWrapper(logger *zap.Logger) types.Logger {
	return &ZapWrapper{Logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

// NewNop returns a logger that discards everything.
func NewNop() types.Logger {
	return &ZapWrapper{Logger: zap.NewNop()}
}

func (z *ZapWrapper) Sync() error {
	return z.Logger.Sync()
}

func (z *ZapWrapper) Error(msg string, fields ...zap.Field) {
	z.Logger.Error(msg, fields...)
}

func (z *ZapWrapper) Warn(msg string, fields ...zap.Field) {
	z.Logger.Warn(msg, fields...)
}

func (z *ZapWrapper) Info(msg string, fields ...zap.Field) {
	z.Logger.Info(msg, fields...)
}

func (z *ZapWrapper) Debug(msg string, fields ...zap.Field) {
	z.Logger.Debug(msg, fields...)
}

func (z *ZapWrapper) Log(lvl zapcore.Level, msg string, fields ...zap.Field) {
	z.Logger.Log(lvl, msg, fields...)
}

// ErrorWithErrStack logs the root cause as "error" and, when the error
// carries a pkg/errors stack, the innermost stack as "stack".
func (z *ZapWrapper) ErrorWithErrStack(msg string, err error, fields ...zap.Field) {
	if err == nil {
		z.Logger.Error(msg, fields...)
		return
	}

	all := make([]zap.Field, 0, len(fields)+2)
	all = append(all, zap.String("error", errors.Cause(err).Error()))
	if stack := innermostStack(err); stack != "" {
		all = append(all, zap.String("stack", stack))
	}
	all = append(all, fields...)

	z.Logger.Error(msg, all...)
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func innermostStack(err error) string {
	var stack string
	for err != nil {
		if st, ok := err.(stackTracer); ok {
			stack = fmt.Sprintf("%+v", st.StackTrace())
		}
		cause, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		err = cause.Cause()
	}
	return strings.TrimSpace(stack)
}
