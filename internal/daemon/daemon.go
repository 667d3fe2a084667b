package daemon

import (
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Setup prepares the process before the API server starts. On OpenWrt the
// service is shielded from the OOM killer; when group is set the process
// switches to it.
func Setup(group string) error {
	if IsOpenWrt() {
		if err := setOOMScoreAdj(-900); err != nil {
			slog.Warn("setOOMScoreAdj", slog.Any("error", err))
		}
	}
	if group == "" {
		return nil
	}
	return setGroup(group)
}

func IsOpenWrt() bool {
	if _, err := os.Stat("/etc/openwrt_release"); err == nil {
		return true
	}

	data, err := os.ReadFile("/etc/os-release")
	if err == nil && strings.Contains(string(data), "OpenWrt") {
		return true
	}

	if _, err := exec.LookPath("opkg"); err == nil {
		return true
	}
	return false
}
