package supervisor

import (
	"log/slog"

	"github.com/coreos/go-systemd/v22/daemon"
)

const (
	sdReady    = daemon.SdNotifyReady
	sdStopping = daemon.SdNotifyStopping
)

// notifySystemd reports state to the service manager. It is a no-op when
// NOTIFY_SOCKET is unset.
func notifySystemd(state string, logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logger.Warn("sd_notify failed", "state", state, "error", err)
		return
	}
	if sent {
		logger.Debug("sd_notify sent", "state", state)
	}
}
