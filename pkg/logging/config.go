package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/certprep/qbank/pkg/constants"
)

// Config describes where and how qbank logs.
type Config struct {
	Level     string // trace, debug, info, warn, error, off
	Format    string // json, console or auto (console on a terminal)
	Output    string // stderr, stdout, discard or a file path
	NoColor   bool
	AddCaller bool
	Fields    map[string]any // attached to every line
}

// DefaultConfig logs info and above to stderr. NO_COLOR is honoured.
func DefaultConfig() *Config {
	return &Config{
		Level:   "info",
		Format:  "auto",
		Output:  "stderr",
		NoColor: os.Getenv("NO_COLOR") != "",
	}
}

// NewLoggerFromConfig builds a logger and sets the zerolog global level to
// match. A nil cfg means DefaultConfig.
func NewLoggerFromConfig(cfg *Config) zerolog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	level := ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	lc := zerolog.New(cfg.writer()).Level(level).With().Timestamp()
	if cfg.AddCaller {
		lc = lc.Caller()
	}
	if len(cfg.Fields) > 0 {
		lc = lc.Fields(cfg.Fields)
	}
	return lc.Logger()
}

// writer opens the destination. A file that cannot be opened falls back
// to stderr.
func (cfg *Config) writer() io.Writer {
	var (
		out io.Writer = os.Stderr
		tty           = isatty.IsTerminal(os.Stderr.Fd())
	)
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
	case "stdout":
		out, tty = os.Stdout, isatty.IsTerminal(os.Stdout.Fd())
	case "discard", "none":
		return io.Discard
	default:
		if f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions); err == nil {
			out, tty = f, false
		}
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		return out
	case "console", "pretty":
	default:
		if !tty {
			return out
		}
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: cfg.NoColor}
}

// ParseLevel accepts zerolog level names plus "warning" and "off". Unknown
// names mean info.
func ParseLevel(level string) zerolog.Level {
	switch level = strings.ToLower(level); level {
	case "warning":
		return zerolog.WarnLevel
	case "off", "none", "disabled":
		return zerolog.Disabled
	}
	if l, err := zerolog.ParseLevel(level); err == nil && level != "" {
		return l
	}
	return zerolog.InfoLevel
}
