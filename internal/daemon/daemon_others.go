//go:build !linux

package daemon

import "log/slog"

func setOOMScoreAdj(int) error { return nil }

func setGroup(name string) error {
	slog.Warn("switching group is only supported on linux", slog.String("group", name))
	return nil
}
