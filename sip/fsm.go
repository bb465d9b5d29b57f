package sip

import (
	"context"
	"log/slog"
)

// respArg extracts the response argument [stateless] passes action handlers
// from FireCtx. Every trigger this core fires carries exactly one arg except
// the timer-driven triggers, which carry none.
func respArg(args []any) *SipMsg {
	if len(args) == 0 {
		return nil
	}
	resp, _ := args[0].(*SipMsg)
	return resp
}

// actInviteProvisional handles entry into and repeat arrival within
// invite_proceeding (§4.5). It arms/re-arms timer_c, relays the provisional
// upstream and, the first time through, dispatches any cancel intent
// recorded before the first 1xx arrived.
func (tx *Trans) actInviteProvisional(ctx context.Context, args ...any) error {
	resp := respArg(args)

	// Re-arming on every provisional extends the guard rather than letting
	// it expire against the first one received.
	tx.armTimer(&tx.timerC, timerCGuard, func() { tx.call.onTimerGuardC(tx.id) })

	tx.call.replyUp(ctx, tx, resp)

	if tx.cancel == CancelToCancel {
		tx.call.sendCancel(ctx, tx)
	}
	return nil
}

// actInviteAcceptedEntry arms timer_m (§4.6) on entry to invite_accepted and
// processes the 2xx that caused the transition exactly as a later arrival
// would, since OnEntry fires before any InternalTransition on the same
// trigger.
func (tx *Trans) actInviteAcceptedEntry(ctx context.Context, args ...any) error {
	tx.cancelRetransmitTimer()
	tx.cancelTimeoutTimer()
	tx.cancelGuardCTimer()
	tx.armTimer(&tx.timerM, tx.timings().TimeM(), func() {
		tx.call.fireTimerEvent(tx.id, evtTimerM, StatusInviteAccepted)
	})
	return tx.actInviteAcceptedArrival(ctx, args...)
}

// actInviteAcceptedArrival handles every 2xx delivered while the
// transaction absorbs RFC 6026 retransmissions and additional forked 2xx
// responses in invite_accepted. A response carrying a To-tag this
// transaction has not already forwarded is a distinct dialog-establishing
// branch (a forked 2xx): it is relayed up like the first, and if a primary
// branch already exists, the new one is immediately hung up per §4.5's
// "received-hangup" sequence. A repeat of an already-seen tag is a plain
// retransmission and is dropped after the primary-tag bookkeeping.
func (tx *Trans) actInviteAcceptedArrival(ctx context.Context, args ...any) error {
	resp := respArg(args)
	tag, _ := resp.ToTag()

	primary, hadPrimary := tx.primaryTag()
	isNew := tx.recordToTag(tag)
	if !isNew {
		return nil
	}

	if !hadPrimary {
		tx.call.replyUp(ctx, tx, resp)
		return nil
	}

	tx.log.LogAttrs(ctx, slog.LevelInfo, "forked 2xx after primary, hanging up",
		slog.Any("transaction", tx), slog.String("primary_tag", primary), slog.String("forked_tag", tag))
	tx.call.hangupDialog(resp.DialogID)
	return nil
}

// actInviteCompletedEntry handles the transition into invite_completed: it
// builds and sends the ACK for the non-2xx final response, cancels the
// timers that no longer apply, and arms timer_d for UDP (the transaction
// stays in invite_completed only to absorb retransmissions of the same
// final response, per §4.6).
func (tx *Trans) actInviteCompletedEntry(ctx context.Context, args ...any) error {
	resp := respArg(args)
	tx.cancelRetransmitTimer()
	tx.cancelTimeoutTimer()
	tx.cancelGuardCTimer()

	tag, _ := resp.ToTag()
	tx.recordToTag(tag)
	tx.primaryCode = resp.Code()

	ack := buildAck(tx.req, resp)
	tx.ack = ack
	if sent, err := tx.call.transport.SendRequest(ctx, ack, tx.call, SendOptions{}); err != nil {
		tx.log.LogAttrs(ctx, slog.LevelWarn, "send ack failed",
			slog.Any("transaction", tx), slog.Any("error", err))
	} else {
		tx.ack = sent
	}

	tx.call.replyUp(ctx, tx, resp)

	if !IsReliable(tx.proto) {
		tx.armTimer(&tx.timerD, tx.timings().TimeD(), func() {
			tx.call.fireTimerEvent(tx.id, evtTimerD, StatusInviteCompleted)
		})
	} else {
		tx.fireLocked(evtTimerD)
	}
	return nil
}

// actInviteCompletedArrival handles every response delivered while the
// transaction absorbs retransmissions in invite_completed, per §4.5's three
// branches: a repeat of the primary branch's final carrying the same code is
// the retransmission this state exists to absorb, so the cached ACK is
// resent; a repeat from the primary branch with a different code is a stray
// duplicate and is logged and dropped without resending; and any final
// (success or otherwise) arriving under a To-tag this transaction has not
// already recorded is a forked branch arriving after the primary already
// completed, handled exactly like invite_accepted's "received-hangup" case.
func (tx *Trans) actInviteCompletedArrival(ctx context.Context, args ...any) error {
	resp := respArg(args)
	tag, _ := resp.ToTag()

	if primary, hadPrimary := tx.primaryTag(); hadPrimary && tag != primary {
		tx.log.LogAttrs(ctx, slog.LevelInfo, "final from new branch after primary complete, hanging up",
			slog.Any("transaction", tx), slog.String("primary_tag", primary), slog.String("new_tag", tag))
		tx.call.hangupDialog(resp.DialogID)
		return nil
	}

	if resp.Code() != tx.primaryCode {
		tx.log.LogAttrs(ctx, slog.LevelInfo, "duplicate final from primary branch carries a different code, ignoring",
			slog.Any("transaction", tx), slog.Uint64("primary_code", uint64(tx.primaryCode)), slog.Uint64("code", uint64(resp.Code())))
		return nil
	}

	if tx.ack == nil {
		return nil
	}
	if err := tx.call.transport.ResendRequest(ctx, tx.ack, SendOptions{}); err != nil {
		tx.log.LogAttrs(ctx, slog.LevelWarn, "ack retransmit failed",
			slog.Any("transaction", tx), slog.Any("error", err))
	}
	return nil
}

// actInviteFinishedEntry releases every timer still armed on the
// transaction (§4.6's terminal row: "cancel all outstanding timers on entry
// to finished") and, when the trigger that landed here carries a response
// (a reliable-transport final or a locally synthesized timeout, as opposed
// to a timer expiry with no response in hand), finishes the delivery §4.5
// assigns those cases: a non-2xx received over a reliable transport still
// needs its ACK sent (a locally synthesized timeout has no wire response to
// ACK), and either way the response is relayed upward exactly once.
func (tx *Trans) actInviteFinishedEntry(ctx context.Context, args ...any) error {
	tx.cancelAllTimers()

	resp := respArg(args)
	if resp == nil {
		return nil
	}

	if !resp.IsLocal() {
		ack := buildAck(tx.req, resp)
		tx.ack = ack
		if sent, err := tx.call.transport.SendRequest(ctx, ack, tx.call, SendOptions{}); err != nil {
			tx.log.LogAttrs(ctx, slog.LevelWarn, "send ack failed",
				slog.Any("transaction", tx), slog.Any("error", err))
		} else {
			tx.ack = sent
		}
	}

	tx.call.replyUp(ctx, tx, resp)
	return nil
}

// actNonInviteProvisional relays a provisional response received in
// trying/proceeding and dispatches a pending cancel intent exactly as
// [Trans.actInviteProvisional] does for the INVITE family.
func (tx *Trans) actNonInviteProvisional(ctx context.Context, args ...any) error {
	resp := respArg(args)
	tx.call.replyUp(ctx, tx, resp)

	if tx.cancel == CancelToCancel {
		tx.call.sendCancel(ctx, tx)
	}
	return nil
}

// actNonInviteCompletedEntry relays the final response and, for UDP, arms
// timer_k to absorb any retransmissions of it (§4.6).
func (tx *Trans) actNonInviteCompletedEntry(ctx context.Context, args ...any) error {
	resp := respArg(args)
	tx.cancelRetransmitTimer()
	tx.cancelTimeoutTimer()

	tx.call.replyUp(ctx, tx, resp)

	if !IsReliable(tx.proto) {
		tx.armTimer(&tx.timerK, tx.timings().TimeK(), func() {
			tx.call.fireTimerEvent(tx.id, evtTimerK, StatusCompleted)
		})
	} else {
		tx.fireLocked(evtTimerK)
	}
	return nil
}

// actNonInviteCompletedArrival silently absorbs a repeat final response
// while the transaction waits out timer_k; §7 treats these as drops rather
// than repeat deliveries to the application.
func (tx *Trans) actNonInviteCompletedArrival(ctx context.Context, args ...any) error {
	return nil
}

// actNonInviteFinishedEntry releases every timer still armed on the
// transaction and, when the trigger that landed here carries a response (a
// reliable-transport final or a locally synthesized timeout), relays it
// upward unconditionally; the non-INVITE family has no ACK to build.
func (tx *Trans) actNonInviteFinishedEntry(ctx context.Context, args ...any) error {
	tx.cancelAllTimers()

	if resp := respArg(args); resp != nil {
		tx.call.replyUp(ctx, tx, resp)
	}
	return nil
}
