package sshserver

import "time"

// Config defines SSH server settings.
type Config struct {
	Addr        string
	HostKeyPath string
	// KeepaliveInterval between client pings; zero disables them.
	KeepaliveInterval time.Duration
	// RenderInterval coalesces redraws triggered by pushed state.
	RenderInterval time.Duration
}
