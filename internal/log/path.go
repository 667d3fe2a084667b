package log

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

var (
	logDir     string
	logDirOnce sync.Once
)

// GetLogDir returns the platform-specific log directory, creating it when
// needed:
//   - Linux: /var/log/appbundle/ when writable
//   - otherwise: ~/.appbundle/
//   - fallback: the temp directory
func GetLogDir() string {
	logDirOnce.Do(func() {
		logDir = determineLogDir()
		if err := os.MkdirAll(logDir, 0755); err != nil {
			logDir = filepath.Join(os.TempDir(), "appbundle")
			_ = os.MkdirAll(logDir, 0755)
		}
	})
	return logDir
}

func determineLogDir() string {
	if runtime.GOOS == "linux" {
		varLogDir := "/var/log/appbundle"
		if writable(varLogDir) {
			return varLogDir
		}
	}
	return getUserLogDir()
}

func writable(dir string) bool {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false
	}
	testFile := filepath.Join(dir, ".write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return false
	}
	_ = f.Close()
	_ = os.Remove(testFile)
	return true
}

func getUserLogDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		userLogDir := filepath.Join(homeDir, ".appbundle")
		if err := os.MkdirAll(userLogDir, 0755); err == nil {
			return userLogDir
		}
	}
	return filepath.Join(os.TempDir(), "appbundle")
}

func GetLogFilePath() string {
	return filepath.Join(GetLogDir(), "appbundle.log")
}

// GetStatsFilePath returns the default location of a stats dump.
func GetStatsFilePath(name string) string {
	return filepath.Join(GetLogDir(), name)
}
