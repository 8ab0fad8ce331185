// Package logging builds the logr.Logger used by the command line tools on
// top of zap.
package logging

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the logger.
type Options struct {
	// Development enables the development encoder config and stack traces
	// on warnings.
	Development bool
	// Verbosity is the highest logr V-level written.
	Verbosity int
	// Format is "console" or "json".
	Format string
	// Dest receives the output. Nil means stderr.
	Dest io.Writer
}

// BindFlags registers the logging flags on fs.
func (o *Options) BindFlags(fs *flag.FlagSet) {
	fs.BoolVar(&o.Development, "log-devel", o.Development, "development logging: human-friendly timestamps and stack traces on warnings")
	fs.IntVar(&o.Verbosity, "v", o.Verbosity, "log verbosity; 1 adds per-record misses and overwrites")
	fs.StringVar(&o.Format, "log-format", o.Format, "log encoding: console or json")
}

// New returns a logger for the options.
func New(o Options) (logr.Logger, error) {
	encCfg := zap.NewProductionEncoderConfig()
	if o.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	var enc zapcore.Encoder
	switch o.Format {
	case "", "console":
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return logr.Discard(), fmt.Errorf("unknown log format %q", o.Format)
	}

	dest := o.Dest
	if dest == nil {
		dest = os.Stderr
	}

	// zapr maps logr V(n) to zap level -n.
	level := zap.NewAtomicLevelAt(zapcore.Level(-int8(max(o.Verbosity, 0))))
	core := zapcore.NewCore(enc, zapcore.AddSync(dest), level)

	zopts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if o.Development {
		zopts = []zap.Option{zap.Development(), zap.AddStacktrace(zapcore.WarnLevel)}
	}
	return zapr.NewLogger(zap.New(core, zopts...)), nil
}
