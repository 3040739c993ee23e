package app

// Liveness reports whether a connection identity is still connected
type Liveness interface {
	IsLive(connID string) bool
}

// LivenessFunc adapts a plain function to Liveness
type LivenessFunc func(connID string) bool

// IsLive implements Liveness
func (f LivenessFunc) IsLive(connID string) bool {
	return f(connID)
}

// authorizeHost decides whether caller may act as host. The recorded host is
// always authorized. Any other member is authorized only when the recorded
// host connection is gone, and then takes over host authority. Without a
// liveness source no takeover happens.
func authorizeHost(hostID, callerID string, isMember bool, live Liveness) (ok, takeover bool) {
	if callerID == hostID {
		return true, false
	}

	if !isMember || live == nil {
		return false, false
	}

	if live.IsLive(hostID) {
		return false, false
	}

	return true, true
}
