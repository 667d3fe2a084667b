//go:build linux

package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"strconv"
	"syscall"
)

func setOOMScoreAdj(score int) error {
	return os.WriteFile("/proc/self/oom_score_adj", []byte(strconv.Itoa(score)), 0644)
}

// setGroup switches the process gid. Unknown groups and missing privileges
// are logged and ignored.
func setGroup(name string) error {
	g, err := user.LookupGroup(name)
	if err != nil {
		slog.Warn("user.LookupGroup", slog.String("group", name), slog.Any("error", err))
		return nil
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return fmt.Errorf("invalid gid %q for group %s: %w", g.Gid, name, err)
	}

	if err := syscall.Setgid(gid); err != nil {
		if errors.Is(err, syscall.EPERM) {
			slog.Warn("syscall.Setgid", slog.String("group", name), slog.Int("gid", gid), slog.Any("error", err))
			return nil
		}
		return fmt.Errorf("syscall.Setgid: %w", err)
	}

	slog.Info("Setup user group", slog.String("group", name), slog.Int("gid", gid))
	return nil
}
