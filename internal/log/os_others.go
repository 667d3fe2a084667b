//go:build !unix

package log

import (
	"log/slog"
	"os"
	"runtime"
)

// GetOSInfo returns slog attributes describing the host for the startup
// header.
func GetOSInfo() []any {
	attrs := runtimeInfo()

	switch runtime.GOOS {
	case "windows":
		osver := "unknown"
		if v, ok := os.LookupEnv("OS"); ok {
			osver = v
		}
		attrs = append(attrs, slog.String("os_version", osver))
	default:
		attrs = append(attrs, slog.String("info", "unknown OS details"))
	}
	return attrs
}
