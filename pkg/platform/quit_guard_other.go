//go:build !darwin

package platform

import "log/slog"

// QuitGuard is a no-op where the quit shortcut belongs to the window manager
type QuitGuard struct{}

// BlockQuit returns a guard that blocks nothing
func BlockQuit(*slog.Logger) *QuitGuard { return &QuitGuard{} }

// Release does nothing
func (*QuitGuard) Release() {}
