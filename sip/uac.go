package sip

import (
	"context"
	"log/slog"
)

// replyUp is the UAC Response State Machine's sole fan-out point toward the
// application (§4.5's "relay upstream" action, used by every state that
// delivers a response rather than only absorbing it). It consults the
// service hook first, then hands whatever survives to the reply sink.
func (c *Call) replyUp(ctx context.Context, tx *Trans, resp *SipMsg) {
	resp, ok := c.invokeUACHook(ctx, tx, resp)
	if !ok {
		return
	}
	if err := c.replies.Reply(ctx, resp, tx, c); err != nil {
		c.log.LogAttrs(ctx, slog.LevelWarn, "reply delivery failed",
			slog.Any("transaction", tx), slog.Any("error", err))
	}
	for fn := range c.observers.All() {
		fn(ctx, resp, tx, c)
	}
}

// ReplyObserver taps a response [Call.replyUp] delivers to the primary
// [ReplySink]. Registered via [Call.OnReply].
type ReplyObserver func(ctx context.Context, resp *SipMsg, tx *Trans, call *Call)

// invokeUACHook runs the nksip_uac_response hook (§4.3's extension dispatch
// pattern, reused here for the UAC side). A nil hook, an error invoking it,
// or a Continue result all fall through to delivering resp unchanged; an Ok
// result means the hook fully handled the response itself, and nothing more
// is delivered.
func (c *Call) invokeUACHook(ctx context.Context, tx *Trans, resp *SipMsg) (*SipMsg, bool) {
	if c.hook == nil {
		return resp, true
	}

	res, err := c.hook.Invoke(ctx, HookUACResponse, HookArgs{
		UasTrans: tx,
		Call:     c,
		Req:      tx.req,
		Resp:     resp,
	})
	if err != nil {
		c.log.LogAttrs(ctx, slog.LevelWarn, "uac response hook failed",
			slog.Any("transaction", tx), slog.Any("error", err))
		return resp, true
	}

	switch {
	case res.Ok:
		return nil, false
	case res.Continue:
		if res.Args.Resp != nil {
			return res.Args.Resp, true
		}
		return resp, true
	default:
		return resp, true
	}
}

// sendCancel builds and sends the CANCEL for tx's request (§9.1) and records
// the intent as discharged. It is invoked the first time a provisional
// response arrives on a transaction already marked [CancelToCancel], since a
// CANCEL sent before any provisional exists has nothing to cancel.
func (c *Call) sendCancel(ctx context.Context, tx *Trans) {
	tx.cancel = CancelCancelled
	tx.cancelGuardCTimer()

	cancel := buildCancel(tx.req)
	if _, err := c.transport.SendRequest(ctx, cancel, c, SendOptions{}); err != nil {
		c.log.LogAttrs(ctx, slog.LevelWarn, "send cancel failed",
			slog.Any("transaction", tx), slog.Any("error", err))
	}
}
