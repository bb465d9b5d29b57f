package sip

import (
	"context"
	"log/slog"
	"time"

	"github.com/qmuntal/stateless"

	"github.com/nksip/sipcore/internal/util"
)

// timerCGuard is the INVITE provisional guard's duration (§4.5's "three
// minute guard" on invite_proceeding), kept independent of trans_time: the
// two timers serve the same purpose for historical RFC reasons, and this
// core arms both rather than conflating them.
const timerCGuard = 3 * time.Minute

// transID derives a client transaction identity from the topmost Via
// branch, falling back to a random id for locally-built requests that have
// not yet been assigned a branch by the transport layer.
func transID(req *SipMsg) string {
	if req.TransID != "" {
		return req.TransID
	}
	if len(req.Via) > 0 {
		if branch, ok := req.Via[0].Branch(); ok && branch != "" {
			return string(req.Method()) + ":" + branch
		}
	}
	return string(req.Method()) + ":" + util.RandString(20)
}

// StartInviteTransaction creates, sends and registers a new INVITE client
// transaction (§4.5's invite_calling entry), wiring its FSM and arming the
// timers §4.6 lists against transaction start.
func (c *Call) StartInviteTransaction(ctx context.Context, req *SipMsg, from TransFrom, opts TransOptions) *Trans {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx := c.newTrans(transID(req), req, from, opts, StatusInviteCalling)
	tx.configureInviteFSM()
	tx.armLifecycleTimers()
	tx.sendInitial(ctx)
	return tx
}

// StartNonInviteTransaction is [Call.StartInviteTransaction]'s non-INVITE
// counterpart (§4.5's trying entry).
func (c *Call) StartNonInviteTransaction(ctx context.Context, req *SipMsg, from TransFrom, opts TransOptions) *Trans {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx := c.newTrans(transID(req), req, from, opts, StatusTrying)
	tx.configureNonInviteFSM()
	tx.armLifecycleTimers()
	tx.sendInitial(ctx)
	return tx
}

// armLifecycleTimers arms the two timers that run regardless of INVITE/non-
// INVITE family per §4.6: the wall-clock `timeout` and, when requested, the
// `expire` guard.
func (tx *Trans) armLifecycleTimers() {
	tx.armTimer(&tx.timerTimeout, tx.call.transTime, func() { tx.call.onTimerTimeout(tx.id) })
	if tx.opts.Expires > 0 {
		tx.armTimer(&tx.timerExpire, tx.opts.Expires, func() { tx.call.onTimerExpire(tx.id) })
	}
}

// sendInitial performs the transaction's first send and, over UDP, arms the
// request retransmission timer (§4.6's "retransmission" row). A send
// failure is logged per §7's transport-failure disposition; it does not
// abort the transaction, since the timeout timer armed above will still
// surface a local 408 if nothing ever arrives.
func (tx *Trans) sendInitial(ctx context.Context) {
	sent, err := tx.call.transport.SendRequest(ctx, tx.req, tx.call, SendOptions{})
	if err != nil {
		tx.log.LogAttrs(ctx, slog.LevelWarn, "send request failed",
			slog.Any("transaction", tx), slog.Any("error", err))
		return
	}
	tx.req = sent

	if !IsReliable(tx.proto) {
		interval := tx.timings().T1()
		tx.armTimer(&tx.timerRetransmit, interval, tx.retransmitFn(interval))
	}
}

// retransmitCap is the ceiling the backoff in [Trans.retransmitFn] grows
// towards. Non-INVITE requests double up to T2 per RFC 3261 §17.1.2.2;
// INVITE requests (timer A) double without a T2 ceiling until timer B tears
// the transaction down, so their cap is effectively timer B's own duration.
func (tx *Trans) retransmitCap() time.Duration {
	if tx.method.Equal(MethodInvite) {
		return tx.timings().TimeB()
	}
	return tx.timings().T2()
}

// retransmitFn returns the callback for the request retransmission timer:
// each firing resends the request and re-arms itself at double the previous
// interval, capped per [Trans.retransmitCap], until some response cancels
// it (§4.6).
func (tx *Trans) retransmitFn(interval time.Duration) func() {
	return func() {
		tx.call.mu.Lock()
		defer tx.call.mu.Unlock()

		if tx.status != StatusInviteCalling && tx.status != StatusTrying {
			return
		}

		if err := tx.call.transport.ResendRequest(context.Background(), tx.req, SendOptions{}); err != nil {
			tx.log.LogAttrs(context.Background(), slog.LevelWarn, "resend request failed",
				slog.Any("transaction", tx), slog.Any("error", err))
		}

		next := min(interval*2, tx.retransmitCap())
		tx.armTimer(&tx.timerRetransmit, next, tx.retransmitFn(next))
	}
}

// configureInviteFSM wires up the INVITE client transaction state graph of
// §4.5: invite_calling -> invite_proceeding -> {invite_accepted |
// invite_completed | finished}. invite_calling shares invite_proceeding's
// outgoing permits, mirroring "transition immediately to invite_proceeding
// ... then fall through" by routing both through the same OnEntryFrom
// actions on the destination states.
func (tx *Trans) configureInviteFSM() {
	sm := stateless.NewStateMachine[TransStatus, transEvent](StatusInviteCalling)
	tx.fsm = sm

	sm.Configure(StatusInviteCalling).
		Permit(evtProvisional, StatusInviteProceeding).
		Permit(evtSuccess, StatusInviteAccepted).
		Permit(evtFinalUDP, StatusInviteCompleted).
		Permit(evtFinalReliable, StatusFinished)

	sm.Configure(StatusInviteProceeding).
		OnEntryFrom(evtProvisional, tx.actInviteProvisional).
		InternalTransition(evtProvisional, tx.actInviteProvisional).
		Permit(evtSuccess, StatusInviteAccepted).
		Permit(evtFinalUDP, StatusInviteCompleted).
		Permit(evtFinalReliable, StatusFinished)

	sm.Configure(StatusInviteAccepted).
		OnEntry(tx.actInviteAcceptedEntry).
		InternalTransition(evtSuccess, tx.actInviteAcceptedArrival).
		InternalTransition(evtFinalUDP, tx.actInviteAcceptedArrival).
		InternalTransition(evtFinalReliable, tx.actInviteAcceptedArrival).
		Ignore(evtProvisional).
		Permit(evtTimerM, StatusFinished)

	sm.Configure(StatusInviteCompleted).
		OnEntry(tx.actInviteCompletedEntry).
		InternalTransition(evtSuccess, tx.actInviteCompletedArrival).
		InternalTransition(evtFinalUDP, tx.actInviteCompletedArrival).
		InternalTransition(evtFinalReliable, tx.actInviteCompletedArrival).
		Ignore(evtProvisional).
		Permit(evtTimerD, StatusFinished)

	sm.Configure(StatusFinished).
		OnEntry(tx.actInviteFinishedEntry)
}

// configureNonInviteFSM wires up the non-INVITE client transaction state
// graph: trying -> proceeding -> {completed | finished}.
func (tx *Trans) configureNonInviteFSM() {
	sm := stateless.NewStateMachine[TransStatus, transEvent](StatusTrying)
	tx.fsm = sm

	sm.Configure(StatusTrying).
		Permit(evtProvisional, StatusProceeding).
		Permit(evtFinalUDP, StatusCompleted).
		Permit(evtFinalReliable, StatusFinished)

	sm.Configure(StatusProceeding).
		OnEntryFrom(evtProvisional, tx.actNonInviteProvisional).
		InternalTransition(evtProvisional, tx.actNonInviteProvisional).
		Permit(evtFinalUDP, StatusCompleted).
		Permit(evtFinalReliable, StatusFinished)

	sm.Configure(StatusCompleted).
		OnEntry(tx.actNonInviteCompletedEntry).
		InternalTransition(evtFinalUDP, tx.actNonInviteCompletedArrival).
		InternalTransition(evtFinalReliable, tx.actNonInviteCompletedArrival).
		Ignore(evtProvisional).
		Permit(evtTimerK, StatusFinished)

	sm.Configure(StatusFinished).
		OnEntry(tx.actNonInviteFinishedEntry)
}
