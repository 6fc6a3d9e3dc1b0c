package probe

import "errors"

var (
	// ErrStart indicates that the probe server failed to start.
	ErrStart = errors.New("failed to start probe server")
	// ErrShutdown indicates that graceful shutdown failed.
	ErrShutdown = errors.New("failed to shutdown probe server gracefully")
)
