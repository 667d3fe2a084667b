package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sunbk201/appbundle/internal/config"
)

// SetLogConf installs the default slog logger. Records go to stdout, the
// rotating log file and, when lb is not nil, to the live log subscribers.
func SetLogConf(level string, logFile string, lb *Broadcaster) {
	if logFile == "" {
		logFile = GetLogFilePath()
	}
	writers := []io.Writer{
		os.Stdout,
		&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    5, // megabytes
			MaxBackups: 5,
			MaxAge:     7, // days
			LocalTime:  true,
			Compress:   true,
		},
	}
	if lb != nil {
		writers = append(writers, lb)
	}

	slog.SetDefault(NewLogger(io.MultiWriter(writers...), level))
}

// NewLogger builds the text logger used by SetLogConf on top of w.
func NewLogger(w io.Writer, level string) *slog.Logger {
	loc := LoadLocalLocation()
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				t := a.Value.Time().In(loc)
				return slog.String(slog.TimeKey, t.Format("2006-01-02 15:04:05"))
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func LogHeader(version string, cfg *config.Config) {
	slog.Info("appbundle started", slog.String("version", version), slog.Any("config", cfg))
	slog.Info("System info", GetOSInfo()...)
}

// LoadLocalLocation tries to detect and load the system local timezone from
// `/etc/localtime` or `/etc/TZ`.
func LoadLocalLocation() *time.Location {
	if _, err := os.Stat("/etc/localtime"); err == nil {
		if loc, _ := time.LoadLocation("Local"); loc != nil {
			return loc
		}
	}
	if data, err := os.ReadFile("/etc/TZ"); err == nil {
		tz := strings.TrimSpace(string(data))
		if strings.HasPrefix(tz, "UTC") {
			return time.UTC
		}
	}
	return time.UTC
}
