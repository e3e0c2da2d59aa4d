// Package httpc builds HTTP clients with timeouts suited to the
// rover's LAN peers. http.DefaultClient has no timeout at all, and a
// hung daemon must never be able to stall the control loop.
package httpc

import (
	"net"
	"net/http"
	"time"
)

// Connection defaults. The rover only talks to hosts a hop away, so
// these are tight.
const (
	DefaultConnectTimeout = 2 * time.Second
	DefaultKeepAlive      = 15 * time.Second
	DefaultIdleTimeout    = 60 * time.Second
)

// NewClient returns a client with the given request timeout and the
// rover's connection defaults. Pool sizes are small: every peer is a
// single daemon, not a farm.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DefaultConnectTimeout,
				KeepAlive: DefaultKeepAlive,
			}).DialContext,
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     DefaultIdleTimeout,
		},
	}
}
