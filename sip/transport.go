package sip

import (
	"context"

	"github.com/nksip/sipcore/header"
	"github.com/nksip/sipcore/internal/types"
)

// TransportProto identifies the wire transport a transaction or Via hop
// runs over. See [types.TransportProto].
type TransportProto = types.TransportProto

// Transport protocols this core distinguishes between for timer and ACK
// purposes. The transport layer itself may support more (TLS, SCTP, WS);
// anything other than [TransportUDP] is treated as reliable.
const (
	TransportUDP TransportProto = "udp"
	TransportTCP TransportProto = "tcp"
	TransportTLS TransportProto = "tls"
)

// IsReliable reports whether p guarantees in-order delivery, which governs
// whether the request retransmission timer and timer_d/timer_k are armed.
func IsReliable(p TransportProto) bool { return !p.Equal(TransportUDP) }

// Addr is a resolved network address (host, optional IP, optional port).
// See [types.Addr].
type Addr = types.Addr

// SendOptions carries per-send instructions for the transport.
type SendOptions struct {
	// StatelessVia tells the transport to insert a Via whose branch
	// parameter is deterministically derived from the message, so a
	// response to a statelessly-relayed request can be matched back
	// without a stored transaction.
	StatelessVia bool
}

// Transport is the narrow contract the transport layer must satisfy. This
// core never implements it: production code wires a real UDP/TCP sender,
// tests wire a fake that records calls.
type Transport interface {
	// SendRequest sends req for call and returns the request as actually
	// sent on the wire (Via/branch may have been filled in by the
	// transport). err is non-nil on failure to send at all.
	SendRequest(ctx context.Context, req *SipMsg, call *Call, opts SendOptions) (*SipMsg, error)
	// ResendRequest retransmits an already-sent message verbatim (used
	// for ACK retransmission on a repeated non-2xx final response).
	ResendRequest(ctx context.Context, msg *SipMsg, opts SendOptions) error
	// SendResponse sends resp toward whatever Via/destination opts or
	// resp.NkPort describe.
	SendResponse(ctx context.Context, resp *SipMsg, opts SendOptions) error
}

// HookName identifies a service/extension dispatch point.
type HookName string

// Hook names this core invokes.
const (
	HookRoute        HookName = "nksip_route"
	HookUACResponse  HookName = "nksip_uac_response"
)

// HookArgs is the mutable argument bundle passed to a [ServiceHook].
type HookArgs struct {
	UriSet   UriSet
	Opts     Values
	UasTrans *Trans
	Call     *Call
	Req      *SipMsg
	Resp     *SipMsg
}

// HookResult is what a [ServiceHook] returns: exactly one of Continue,
// Reply, or Ok should be set, mirroring the `{continue,_}|{reply,_,_}|{ok,_}`
// tagged result in the wire model.
type HookResult struct {
	Continue bool
	Args     HookArgs // valid when Continue

	Reply *ReplySpec // valid when Reply != nil
	Call  *Call      // updated call, valid alongside Reply or when Ok

	Ok bool // valid when Ok is true and Reply == nil
}

// ServiceHook is the extension dispatch point consulted by the router and
// the UAC response state machine.
type ServiceHook interface {
	Invoke(ctx context.Context, hook HookName, args HookArgs) (HookResult, error)
}

// DialogSubsystem is the narrow contract the (out-of-scope) dialog layer
// must satisfy.
type DialogSubsystem interface {
	Update(ctx context.Context, req, resp *SipMsg, isProxy bool, call *Call) error
	AuthUpdate(ctx context.Context, dialogID string, resp *SipMsg, call *Call) error
	RemoveProvEvent(ctx context.Context, req *SipMsg, call *Call) error
	Invoke(ctx context.Context, dialogID string, method RequestMethod, opts Values, call *Call) error
}

// ReplySink feeds a transaction's responses to the calling application.
type ReplySink interface {
	Reply(ctx context.Context, resp *SipMsg, trans *Trans, call *Call) error
}

// ReplySpec describes a response the router, validator, or stateless relay
// wants sent in place of forwarding anything further.
type ReplySpec struct {
	Code    uint
	Reason  string
	Headers []header.Header
}

// NewReplySpec builds a ReplySpec for a bare status code.
func NewReplySpec(code uint, reason string) *ReplySpec {
	return &ReplySpec{Code: code, Reason: reason}
}

// WithHeader returns a copy of spec with h appended.
func (spec *ReplySpec) WithHeader(h header.Header) *ReplySpec {
	spec2 := *spec
	spec2.Headers = append(append([]header.Header(nil), spec.Headers...), h)
	return &spec2
}
