package sip_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nksip/sipcore/header"
	"github.com/nksip/sipcore/internal/log"
	"github.com/nksip/sipcore/sip"
)

// testTick is the base unit every test's [sip.TimingConfig] is scaled off,
// short enough to keep retransmission/lifecycle timers from slowing the
// suite down while still leaving room to observe intermediate states.
const testTick = 4 * time.Millisecond

// sentReq is one call recorded by [fakeTransport.SendRequest]/[ResendRequest].
type sentReq struct {
	req    *sip.SipMsg
	opts   sip.SendOptions
	resend bool
}

// fakeTransport is a minimal [sip.Transport] that records every send and
// lets tests drive responses back in without a real socket.
type fakeTransport struct {
	mu      sync.Mutex
	sent    []sentReq
	resps   []sentReq
	sendErr error
}

func newFakeTransport() *fakeTransport { return &fakeTransport{} }

func (tp *fakeTransport) SendRequest(_ context.Context, req *sip.SipMsg, _ *sip.Call, opts sip.SendOptions) (*sip.SipMsg, error) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.sent = append(tp.sent, sentReq{req: req, opts: opts})
	if tp.sendErr != nil {
		return nil, tp.sendErr
	}
	return req, nil
}

func (tp *fakeTransport) ResendRequest(_ context.Context, req *sip.SipMsg, opts sip.SendOptions) error {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.sent = append(tp.sent, sentReq{req: req, opts: opts, resend: true})
	return tp.sendErr
}

func (tp *fakeTransport) SendResponse(_ context.Context, resp *sip.SipMsg, opts sip.SendOptions) error {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.resps = append(tp.resps, sentReq{req: resp, opts: opts})
	return tp.sendErr
}

func (tp *fakeTransport) sentCount() int {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return len(tp.sent)
}

func (tp *fakeTransport) lastSent() *sip.SipMsg {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if len(tp.sent) == 0 {
		return nil
	}
	return tp.sent[len(tp.sent)-1].req
}

func (tp *fakeTransport) sentMethods() []header.RequestMethod {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	out := make([]header.RequestMethod, len(tp.sent))
	for i, s := range tp.sent {
		out[i] = s.req.Method()
	}
	return out
}

// fakeDialogs is a no-op [sip.DialogSubsystem] that records hangup
// invocations.
type fakeDialogs struct {
	mu      sync.Mutex
	invoked []header.RequestMethod
}

func (d *fakeDialogs) Update(context.Context, *sip.SipMsg, *sip.SipMsg, bool, *sip.Call) error {
	return nil
}

func (d *fakeDialogs) AuthUpdate(context.Context, string, *sip.SipMsg, *sip.Call) error { return nil }

func (d *fakeDialogs) RemoveProvEvent(context.Context, *sip.SipMsg, *sip.Call) error { return nil }

func (d *fakeDialogs) Invoke(_ context.Context, _ string, method header.RequestMethod, _ sip.Values, _ *sip.Call) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.invoked = append(d.invoked, method)
	return nil
}

func (d *fakeDialogs) invokedMethods() []header.RequestMethod {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]header.RequestMethod, len(d.invoked))
	copy(out, d.invoked)
	return out
}

// fakeReplies collects every response the UAC response state machine
// delivers to the application.
type fakeReplies struct {
	mu   sync.Mutex
	resp []*sip.SipMsg
}

func (r *fakeReplies) Reply(_ context.Context, resp *sip.SipMsg, _ *sip.Trans, _ *sip.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resp = append(r.resp, resp)
	return nil
}

func (r *fakeReplies) codes() []uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint, len(r.resp))
	for i, resp := range r.resp {
		out[i] = resp.Code()
	}
	return out
}

func (r *fakeReplies) last() *sip.SipMsg {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.resp) == 0 {
		return nil
	}
	return r.resp[len(r.resp)-1]
}

func mustURI(t *testing.T, s string) sip.Uri {
	t.Helper()
	u, err := sip.ParseUri(s)
	if err != nil {
		t.Fatalf("ParseUri(%q) error = %v, want nil", s, err)
	}
	return u
}

// testTimings derives every base timer from testTick so a test suite runs
// fast. T2 and the 64×T1 timers (B, M) keep their RFC 3261 ratios; T4 (and
// so timer_k) and timer_d are shortened to 8× and 16× testTick.
func testTimings() sip.TimingConfig {
	return sip.NewTimings(testTick, 8*testTick, 8*testTick, 16*testTick)
}

// newTestCall builds a [sip.Call] wired to fresh fakes.
func newTestCall(t *testing.T, tp sip.Transport, dialogs sip.DialogSubsystem, replies sip.ReplySink) *sip.Call {
	t.Helper()
	return sip.NewCall("call-"+t.Name(), &sip.CallOptions{
		Timings:   testTimings(),
		TransTime: 100 * testTick,
		Transport: tp,
		Dialogs:   dialogs,
		Replies:   replies,
		Log:       log.Noop,
	})
}

// newInviteReq builds a minimal, well-formed outgoing INVITE request
// addressed to "to" with the headers the UAC response state machine reads.
func newInviteReq(t *testing.T, to string) *sip.SipMsg {
	t.Helper()

	reqURI := mustURI(t, to)
	req := sip.NewRequest(sip.MethodInvite, reqURI)

	req.CallID = header.CallID("call-id-" + t.Name())
	req.CSeq = header.CSeq{SeqNum: 1, Method: sip.MethodInvite}

	from := header.From{
		URI:    mustURI(t, "sip:alice@example.com").Base,
		Params: header.Values{"tag": {"alice-tag"}},
	}
	req.From = &from

	toHdr := header.To{URI: reqURI.Base}
	req.To = &toHdr

	req.Via = header.Via{{
		Proto:     header.ProtoInfo{Name: "SIP", Version: "2.0"},
		Transport: sip.TransportUDP,
		Addr:      header.HostPort("10.0.0.1", 5060),
		Params:    header.Values{"branch": {"z9hG4bK-" + t.Name()}},
	}}
	req.MaxForwards = 70
	return req
}

// respondTo builds a response with code/reason to req, stamping a To-tag so
// it reads as dialog-establishing, and copying req's Via stack (minus any
// transport-layer 2-Via relay framing) so [sip.Call.DeliverResponse]'s
// pre-processing has a consistent Via to look at.
func respondTo(t *testing.T, req *sip.SipMsg, code uint, reason, toTag string) *sip.SipMsg {
	t.Helper()
	resp := sip.NewResponse(code, reason)
	resp.CallID = req.CallID
	resp.CSeq = req.CSeq
	resp.From = req.From
	toHdr := *req.To
	toHdr.Params = header.Values{"tag": {toTag}}
	resp.To = &toHdr
	resp.Via = req.Via
	resp.NkPort = &sip.Nkport{Transport: sip.TransportUDP}
	resp.DialogID = "dialog-" + toTag
	return resp
}
