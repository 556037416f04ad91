//go:build !linux

package gpio

import "errors"

// RealRelay is not available on non-Linux platforms.
type RealRelay struct{}

// NewRealRelay returns an error on non-Linux platforms.
func NewRealRelay(pin int) (*RealRelay, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (r *RealRelay) Set(on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealRelay) Close() error {
	return nil
}

// RealMotion is not available on non-Linux platforms.
type RealMotion struct{}

// NewRealMotion returns an error on non-Linux platforms.
func NewRealMotion(pin int) (*RealMotion, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Events is not implemented on non-Linux platforms.
func (m *RealMotion) Events() <-chan struct{} {
	return nil
}

// Close is not implemented on non-Linux platforms.
func (m *RealMotion) Close() error {
	return nil
}
