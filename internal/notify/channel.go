// Package notify implements the notification fan-out: one envelope in, every
// enabled channel attempted, one aggregate report out. Channels catch their
// own failures and report them as results, never as errors, so a single
// misbehaving provider cannot short-circuit delivery to the others.
package notify

import (
	"context"

	"github.com/jscomlabs/contactd/internal/domain"
)

// Channel is one notification delivery method.
type Channel interface {
	// Enabled reports whether this channel is configured for use. Channels
	// check their feature flag and required settings (webhook URL, sender
	// address) here, not in Send.
	Enabled() bool

	// Name returns a stable identifier for result reporting (e.g. "email").
	Name() string

	// Send delivers the envelope. It never returns an error; all failures
	// (network, provider rejection, rendering) are converted into a failed
	// Result with a description.
	Send(ctx context.Context, env domain.Envelope) Result
}

// Result is the outcome of one channel's delivery attempt.
type Result struct {
	Channel string `json:"channel"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Report is the aggregate outcome of one fan-out. Success is true only when
// every attempted channel succeeded (trivially true when none were enabled).
type Report struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Results []Result `json:"results,omitempty"`
}

// succeeded builds a successful Result for the named channel.
func succeeded(channel, message string) Result {
	return Result{Channel: channel, Success: true, Message: message}
}

// failed builds a failed Result for the named channel.
func failed(channel, message string, err error) Result {
	r := Result{Channel: channel, Success: false, Message: message}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
