package sip

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"braces.dev/errtrace"
	"github.com/qmuntal/stateless"

	"github.com/nksip/sipcore/internal/log"
	"github.com/nksip/sipcore/internal/timeutil"
	"github.com/nksip/sipcore/internal/types"
)

// TransStatus is a UAC transaction's current status (§4.5).
type TransStatus string

// INVITE family statuses.
const (
	StatusInviteCalling    TransStatus = "invite_calling"
	StatusInviteProceeding TransStatus = "invite_proceeding"
	StatusInviteAccepted   TransStatus = "invite_accepted"
	StatusInviteCompleted  TransStatus = "invite_completed"
)

// Non-INVITE family statuses.
const (
	StatusTrying     TransStatus = "trying"
	StatusProceeding TransStatus = "proceeding"
	StatusCompleted  TransStatus = "completed"
)

// StatusFinished is shared by both families: the transaction is done and
// holds no further state.
const StatusFinished TransStatus = "finished"

// transEvent drives the two transaction FSMs. Final-response triggers are
// split by transport reliability at dispatch time rather than decided
// dynamically inside the machine, so the destination state for any given
// trigger is static and every Permit below is a plain Permit.
type transEvent string

const (
	evtProvisional   transEvent = "provisional"
	evtSuccess       transEvent = "success"
	evtFinalUDP      transEvent = "final_udp"
	evtFinalReliable transEvent = "final_reliable"

	evtTimerD transEvent = "timer_d"
	evtTimerK transEvent = "timer_k"
	evtTimerM transEvent = "timer_m"
)

// CancelState is the cancellation intent of a transaction (§5).
type CancelState string

const (
	CancelNone      CancelState = "none"
	CancelToCancel  CancelState = "to_cancel"
	CancelCancelled CancelState = "cancelled"
)

// TransOrigin tags where a transaction's request came from.
type TransOrigin int

const (
	// OriginUser means the request was built and sent by the application.
	OriginUser TransOrigin = iota
	// OriginFork means the request is a child the Proxy Router spawned
	// while forking an incoming request over a UriSet.
	OriginFork
)

// TransFrom is the `from` field of §3's Transaction record: `User |
// Fork(TransId)`.
type TransFrom struct {
	Origin        TransOrigin
	ParentTransID string // set when Origin == OriginFork
}

// TransOptions carries the per-transaction options named throughout §4.5/§5.
type TransOptions struct {
	// NoDialog suppresses the dialog_update hook on every response.
	NoDialog bool
	// AutoACK requests a best-effort automatic ACK on the first 2xx
	// (`auto_2xx_ack`).
	AutoACK bool
	// Expires, if non-zero, arms the `expire` timer of §4.6.
	Expires time.Duration
	// Timings overrides the call's [TimingConfig] for this transaction.
	Timings TimingConfig
}

// Trans is a client transaction record (§3). It is the one record type
// both [Call.StartInviteTransaction] and [Call.StartNonInviteTransaction]
// create, and also the
// transaction context the Proxy Router inspects and rewrites while routing
// the request that created it.
//
// Trans carries no lock of its own: every field is read and mutated only
// while the owning [Call]'s mutex is held.
type Trans struct {
	id     string
	method RequestMethod
	proto  TransportProto
	from   TransFrom
	opts   TransOptions

	req  *SipMsg
	resp *SipMsg
	code uint
	ack  *SipMsg // cached ACK for a non-2xx final, resent on retransmission

	status TransStatus
	start  time.Time
	cancel CancelState
	toTags []string

	// primaryCode is the status code of the first final response recorded
	// in invite_completed (the primary branch's To-tag is toTags[0]); later
	// arrivals from that same tag are compared against it to tell a genuine
	// ACK-retransmission trigger from a stray duplicate with a different code.
	primaryCode uint

	timerRetransmit *timeutil.SerializableTimer
	timerTimeout    *timeutil.SerializableTimer
	timerExpire     *timeutil.SerializableTimer
	timerC          *timeutil.SerializableTimer
	timerD          *timeutil.SerializableTimer
	timerK          *timeutil.SerializableTimer
	timerM          *timeutil.SerializableTimer

	fsm *stateless.StateMachine[TransStatus, transEvent]

	call *Call
	log  *slog.Logger
}

// ID returns the transaction identifier.
func (tx *Trans) ID() string {
	if tx == nil {
		return ""
	}
	return tx.id
}

// Method returns the method of the request that created the transaction.
func (tx *Trans) Method() RequestMethod {
	if tx == nil {
		return ""
	}
	return tx.method
}

// Status returns the transaction's current status.
func (tx *Trans) Status() TransStatus {
	if tx == nil {
		return ""
	}
	return tx.status
}

// Request returns the request currently associated with the transaction.
func (tx *Trans) Request() *SipMsg {
	if tx == nil {
		return nil
	}
	return tx.req
}

// withRequest returns a shallow copy of tx with req substituted. Used by the
// Proxy Router to thread the Request Validator's Max-Forwards-decremented
// request back through without mutating the transaction map directly.
func (tx *Trans) withRequest(req *SipMsg) *Trans {
	if tx == nil {
		return nil
	}
	tx2 := *tx
	tx2.req = req
	return &tx2
}

// LogValue implements [slog.LogValuer].
func (tx *Trans) LogValue() slog.Value {
	if tx == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.String("id", tx.id),
		slog.Any("method", tx.method),
		slog.String("status", string(tx.status)),
	)
}

func (tx *Trans) isFinal() bool { return tx.status == StatusFinished }

func (tx *Trans) primaryTag() (string, bool) {
	if len(tx.toTags) == 0 {
		return "", false
	}
	return tx.toTags[0], true
}

func (tx *Trans) recordToTag(tag string) (isNew bool) {
	for _, t := range tx.toTags {
		if t == tag {
			return false
		}
	}
	tx.toTags = append(tx.toTags, tag)
	return true
}

func (tx *Trans) armTimer(slot **timeutil.SerializableTimer, d time.Duration, fn func()) {
	if old := *slot; old != nil {
		old.Stop()
	}
	*slot = timeutil.AfterFunc(d, fn)
}

func (tx *Trans) cancelTimer(slot **timeutil.SerializableTimer) {
	if t := *slot; t != nil {
		t.Stop()
		*slot = nil
	}
}

func (tx *Trans) cancelRetransmitTimer() { tx.cancelTimer(&tx.timerRetransmit) }
func (tx *Trans) cancelTimeoutTimer()    { tx.cancelTimer(&tx.timerTimeout) }
func (tx *Trans) cancelExpireTimer()     { tx.cancelTimer(&tx.timerExpire) }
func (tx *Trans) cancelGuardCTimer()     { tx.cancelTimer(&tx.timerC) }

func (tx *Trans) cancelAllTimers() {
	tx.cancelTimer(&tx.timerRetransmit)
	tx.cancelTimer(&tx.timerTimeout)
	tx.cancelTimer(&tx.timerExpire)
	tx.cancelTimer(&tx.timerC)
	tx.cancelTimer(&tx.timerD)
	tx.cancelTimer(&tx.timerK)
	tx.cancelTimer(&tx.timerM)
}

func (tx *Trans) timings() TimingConfig {
	if !tx.opts.Timings.IsZero() {
		return tx.opts.Timings
	}
	return tx.call.timings
}

// MsgLogEntry is one row of the call's message log (§3), most-recent first.
type MsgLogEntry struct {
	MsgID    string
	TransID  string
	DialogID string
}

// CallOptions configures a [Call]. Zero value is usable.
type CallOptions struct {
	Timings   TimingConfig
	TransTime time.Duration
	Transport Transport
	Hook      ServiceHook
	Dialogs   DialogSubsystem
	Replies   ReplySink
	Log       *slog.Logger
}

func (o *CallOptions) timings() TimingConfig {
	if o == nil {
		return TimingConfig{}
	}
	return o.Timings
}

// transTime returns the hard wall-clock transaction budget (`trans_time`),
// defaulting to [TimingConfig.TimeC] (600×T1).
func (o *CallOptions) transTime() time.Duration {
	if o != nil && o.TransTime != 0 {
		return o.TransTime
	}
	return o.timings().TimeC()
}

func (o *CallOptions) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Def
	}
	return o.Log
}

// Call is the aggregate state of §3: service id, transaction map, message
// log and configured timeouts. It is the Go rendering of the single-threaded
// cooperative actor of §5 — every public method acquires mu for its whole
// duration and releases it before any cross-call or cross-actor call.
type Call struct {
	mu sync.Mutex

	id        string
	timings   TimingConfig
	transTime time.Duration

	transport Transport
	hook      ServiceHook
	dialogs   DialogSubsystem
	replies   ReplySink

	trans  map[string]*Trans
	msgLog types.Deque[MsgLogEntry]

	observers types.CallbackManager[ReplyObserver]

	log *slog.Logger
}

// NewCall builds a Call identified by id.
func NewCall(id string, opts *CallOptions) *Call {
	return &Call{
		id:        id,
		timings:   opts.timings(),
		transTime: opts.transTime(),
		transport: opts.Transport,
		hook:      opts.Hook,
		dialogs:   opts.Dialogs,
		replies:   opts.Replies,
		trans:     make(map[string]*Trans),
		log:       opts.log(),
	}
}

// ID returns the call's service id.
func (c *Call) ID() string { return c.id }

// MsgLog returns a snapshot of the call's recent message log (§3),
// most-recent first.
func (c *Call) MsgLog() []MsgLogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.msgLog.Snapshot()
}

// OnReply registers a secondary, read-only observer invoked alongside the
// primary [ReplySink] for every response [Call] delivers upstream — for
// metrics or audit consumers that must not affect delivery. The returned
// func unregisters the observer.
func (c *Call) OnReply(fn ReplyObserver) (remove func()) {
	return c.observers.Add(fn)
}

// newTrans allocates the common transaction record; callers must hold mu.
func (c *Call) newTrans(id string, req *SipMsg, from TransFrom, opts TransOptions, initial TransStatus) *Trans {
	tx := &Trans{
		id:     id,
		method: req.Method(),
		proto:  req.NkPort.protoOr(TransportUDP),
		from:   from,
		opts:   opts,
		req:    req,
		status: initial,
		cancel: CancelNone,
		start:  time.Now(),
		call:   c,
		log:    c.log,
	}
	c.trans[id] = tx
	return tx
}

func (np *Nkport) protoOr(def TransportProto) TransportProto {
	if np == nil {
		return def
	}
	return np.Transport
}

// Cancel records the cancel intent on transID unless one is already
// recorded. The intent is inspected (and the CANCEL actually sent) only on a
// subsequent provisional response in invite_calling/invite_proceeding, per
// §5's cancellation model; on a transaction already past those states the
// intent is recorded but nothing is sent.
func (c *Call) Cancel(transID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, ok := c.trans[transID]
	if !ok {
		return errtrace.Wrap(ErrTransactionNotFound)
	}
	if tx.cancel == CancelNone {
		tx.cancel = CancelToCancel
	}
	return nil
}

// DeliverResponse is the main UAC entry point: the transport layer calls it
// for every inbound response, keyed by the transaction id it matched
// against. It runs the §4.5 entry pre-processing pipeline and dispatches on
// status.
func (c *Call) DeliverResponse(ctx context.Context, transID string, resp *SipMsg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deliverLocked(ctx, transID, resp)
}

func (c *Call) deliverLocked(ctx context.Context, transID string, resp *SipMsg) error {
	tx, ok := c.trans[transID]
	if !ok {
		return errtrace.Wrap(ErrTransactionNotFound)
	}
	if tx.isFinal() {
		// The machine is total but terminal states accept no further
		// triggers; per §7 this is a silent drop, not an error.
		return nil
	}

	resp = c.applyTransactionTimeout(tx, resp)
	code := resp.Code()

	if code >= 200 && code < 300 {
		dialogID := resp.DialogID
		if err := c.dialogs.AuthUpdate(ctx, dialogID, resp, c); err != nil {
			c.log.LogAttrs(ctx, slog.LevelWarn, "auth update failed",
				slog.Any("transaction", tx), slog.Any("error", err))
		}
	}

	tx.resp = resp
	tx.code = code

	if !tx.opts.NoDialog && tx.req != nil {
		isProxy := tx.from.Origin == OriginFork
		if err := c.dialogs.Update(ctx, tx.req, resp, isProxy, c); err != nil {
			c.log.LogAttrs(ctx, slog.LevelWarn, "dialog update failed",
				slog.Any("transaction", tx), slog.Any("error", err))
		}
	}

	if code >= 300 && (tx.method.Equal(MethodSubscribe) || tx.method.Equal(MethodRefer)) {
		if err := c.dialogs.RemoveProvEvent(ctx, tx.req, c); err != nil {
			c.log.LogAttrs(ctx, slog.LevelWarn, "remove prov event failed",
				slog.Any("transaction", tx), slog.Any("error", err))
		}
	}

	c.msgLog.Prepend(MsgLogEntry{MsgID: resp.MsgID, TransID: transID, DialogID: resp.DialogID})

	return c.dispatch(ctx, tx, resp)
}

// applyTransactionTimeout implements entry pre-processing step 1: if the
// wall clock since tx.start exceeds the call's trans_time, resp is replaced
// with a locally synthesized 408.
func (c *Call) applyTransactionTimeout(tx *Trans, resp *SipMsg) *SipMsg {
	if time.Since(tx.start) <= c.transTime {
		return resp
	}
	synth := NewResponse(408, "Transaction Timeout")
	synth.TransID = tx.id
	synth.DialogID = resp.DialogID
	return synth
}

// dispatch fires the trigger matching resp's status class. A trigger with
// no transition defined in the transaction's current state (e.g. a stray
// provisional once the transaction is already accepted) is, per §7, an
// unrecognized combination: silently dropped rather than surfaced as an
// error.
func (c *Call) dispatch(ctx context.Context, tx *Trans, resp *SipMsg) error {
	// Any response, provisional or final, is proof of life for the request:
	// the retransmission timer is cancelled unconditionally per §4.6,
	// regardless of which trigger it ends up mapping to below.
	tx.cancelRetransmitTimer()

	code := resp.Code()
	var evt transEvent
	switch {
	case code < 200:
		evt = evtProvisional
	case code < 300:
		evt = evtSuccess
	case resp.IsLocal() || IsReliable(tx.proto):
		// A locally synthesized final (the timeout 408) always lands in
		// the terminal state directly: there is no real upstream to
		// absorb retransmissions from, so the UDP-only absorbing state
		// (invite_completed/completed) would never be exited.
		evt = evtFinalReliable
	default:
		evt = evtFinalUDP
	}

	if err := tx.fsm.FireCtx(ctx, evt, resp); err != nil {
		c.log.LogAttrs(ctx, slog.LevelDebug, "response dropped",
			slog.Any("transaction", tx), slog.String("event", string(evt)), slog.Any("error", err))
		return nil
	}
	return nil
}

// fireTimerEvent re-enters the transaction's machine from a timer callback,
// acquiring mu itself since a timer fires on its own goroutine. The guard
// re-checks the transaction is still in the state the timer was armed for:
// a response may have raced the timer and already moved the transaction on,
// in which case the now-stale timer firing is a no-op.
func (c *Call) fireTimerEvent(transID string, evt transEvent, guard TransStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, ok := c.trans[transID]
	if !ok || tx.status != guard {
		return
	}
	tx.fireLocked(evt)
}

// fireLocked fires evt on tx's machine; callers must already hold c.mu. It
// is safe to call from inside another action handler's body (e.g. to
// advance straight to finished over a reliable transport) because
// [stateless.StateMachine] queues reentrant Fire calls rather than
// recursing into them.
func (tx *Trans) fireLocked(evt transEvent, args ...any) {
	if err := tx.fsm.FireCtx(context.Background(), evt, args...); err != nil {
		panic(errtrace.Wrap(err))
	}
}

// onTimerTimeout fires when a transaction's own wall-clock `timeout` timer
// (armed for call.trans_time at transaction start) expires with no response
// ever having arrived. It synthesizes the same local 408 entry
// pre-processing would produce reactively, and runs it through the same
// path, satisfying §4.6's "timeout" row without a separate code path.
func (c *Call) onTimerTimeout(transID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, ok := c.trans[transID]
	if !ok || tx.isFinal() {
		return
	}
	resp := NewResponse(408, "Transaction Timeout")
	resp.TransID = transID
	_ = c.deliverLocked(context.Background(), transID, resp)
}

// onTimerExpire fires when a transaction's `expire` timer (armed when the
// request carries a non-zero [TransOptions.Expires]) runs out before any
// final response arrived. Treated identically to [Call.onTimerTimeout]: no
// behavior beyond the timeout/expire contract table is specified for it.
func (c *Call) onTimerExpire(transID string) {
	c.onTimerTimeout(transID)
}

// onTimerGuardC fires when timer_c, the INVITE provisional guard of §4.6,
// elapses with the transaction still waiting in invite_proceeding. Treated
// identically to the wall-clock trans_time timeout: a local 408 is
// synthesized and run through the same entry pre-processing a real response
// would get.
func (c *Call) onTimerGuardC(transID string) {
	c.onTimerTimeout(transID)
}

// hangupDialog spawns the "received-hangup" sequence of §4.5: an ACK
// followed by a BYE against dialogID, run on an independent goroutine so it
// can call back into the dialog subsystem's public API without holding
// mu — the owning Call may already be locked by the caller.
func (c *Call) hangupDialog(dialogID string) {
	go func() {
		ctx := context.Background()
		if err := c.dialogs.Invoke(ctx, dialogID, MethodAck, nil, c); err != nil {
			c.log.LogAttrs(ctx, slog.LevelWarn, "fork hangup ack failed",
				slog.String("dialog_id", dialogID), slog.Any("error", err))
		}
		if err := c.dialogs.Invoke(ctx, dialogID, MethodBye, nil, c); err != nil {
			c.log.LogAttrs(ctx, slog.LevelWarn, "fork hangup bye failed",
				slog.String("dialog_id", dialogID), slog.Any("error", err))
		}
	}()
}
