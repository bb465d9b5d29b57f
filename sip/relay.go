package sip

import (
	"context"
	"log/slog"

	"github.com/nksip/sipcore/header"
	"github.com/nksip/sipcore/internal/log"
	"github.com/nksip/sipcore/internal/types"
)

// RelayOptions configures a [Relay]. Zero value is usable, defaulting to
// [log.Def].
type RelayOptions struct {
	logger *slog.Logger
}

// Logger returns the configured logger, defaulting to [log.Def].
func (o *RelayOptions) Logger() *slog.Logger {
	if o == nil || o.logger == nil {
		return log.Def
	}
	return o.logger
}

// WithLogger sets the relay's logger.
func (o *RelayOptions) WithLogger(l *slog.Logger) *RelayOptions {
	if o == nil {
		o = &RelayOptions{}
	}
	o.logger = l
	return o
}

// Relay implements the Stateless Relay component (§4.4): requests routed
// without a transaction go out through [Relay.Forward], and responses to
// them come back through [Relay.Reverse] matched only by the Via stack, no
// transaction lookup involved.
type Relay struct {
	transport Transport
	opts      *RelayOptions
}

// NewRelay builds a Relay sending through transport.
func NewRelay(transport Transport, opts *RelayOptions) *Relay {
	return &Relay{transport: transport, opts: opts}
}

func (r *Relay) log() *slog.Logger { return r.opts.Logger() }

// Forward sends req toward uri with no transaction bookkeeping. The
// transport is asked to insert a Via whose branch is derived deterministically
// from the message, so [Relay.Reverse] can match the eventual response back
// without any stored state.
func (r *Relay) Forward(ctx context.Context, req *SipMsg, uri Uri, call *Call) (*ReplySpec, error) {
	out := req.WithReqURI(uri)
	if _, err := r.transport.SendRequest(ctx, out, call, SendOptions{StatelessVia: true}); err != nil {
		r.log().LogAttrs(ctx, slog.LevelWarn, "stateless relay send failed",
			slog.Any("uri", uri), slog.Any("error", err))
		return NewReplySpec(503, "Service Unavailable"), nil
	}
	return nil, nil
}

// Reverse returns a response toward the client that sent the request this
// relay forwarded, using only the Via stack the response carries (§4.4's
// response path). It reports false when resp cannot be forwarded: below the
// forwardable code floor, or missing the second Via a stateless relay
// response must carry.
func (r *Relay) Reverse(ctx context.Context, resp *SipMsg) bool {
	if resp.Code() < 101 {
		return false
	}
	if len(resp.Via) < 2 {
		r.log().LogAttrs(ctx, slog.LevelWarn, "stateless relay response missing via stack",
			slog.Any("response", resp))
		return false
	}

	ours, rest := resp.Via[0], resp.Via[1:]
	next := rest[0]

	host := next.Addr.Host()
	if received, ok := ours.Received(); ok {
		host = received.String()
	}
	port, ok := ours.RPort()
	if !ok {
		port, _ = next.Addr.Port()
	}
	addr := types.HostPort(host, port)

	out := resp.WithVia(header.Via(rest)).WithNkPort(&Nkport{
		Transport: next.Transport,
		Remote:    addr,
	})

	if err := r.transport.SendResponse(ctx, out, SendOptions{}); err != nil {
		r.log().LogAttrs(ctx, slog.LevelWarn, "stateless relay response send failed",
			slog.Any("response", resp), slog.Any("error", err))
		return false
	}
	return true
}
