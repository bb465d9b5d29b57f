package sip

import (
	"github.com/nksip/sipcore/header"
)

// RequestMethod represents a SIP request method.
type RequestMethod = header.RequestMethod

// Common request methods.
const (
	MethodAck       = header.RequestMethod("ACK")
	MethodBye       = header.RequestMethod("BYE")
	MethodCancel    = header.RequestMethod("CANCEL")
	MethodInvite    = header.RequestMethod("INVITE")
	MethodOptions   = header.RequestMethod("OPTIONS")
	MethodRefer     = header.RequestMethod("REFER")
	MethodRegister  = header.RequestMethod("REGISTER")
	MethodSubscribe = header.RequestMethod("SUBSCRIBE")
)

// MsgClass tags a [SipMsg] as either a request or a response, mirroring the
// `{req, Method}` / `{resp, Code, Reason}` tagged sum from the wire model.
type MsgClass struct {
	Method RequestMethod // non-empty for requests
	Code   uint          // non-zero for responses
	Reason string        // set for responses
}

// IsRequest reports whether the class describes a request.
func (c MsgClass) IsRequest() bool { return c.Method != "" }

// IsResponse reports whether the class describes a response.
func (c MsgClass) IsResponse() bool { return !c.IsRequest() }

func reqClass(method RequestMethod) MsgClass { return MsgClass{Method: method} }

func respClass(code uint, reason string) MsgClass { return MsgClass{Code: code, Reason: reason} }

// Nkport is the opaque transport handle a [SipMsg] was received on, or that
// an outgoing message should be sent through. A nil *Nkport on a response
// means the response was synthesized locally rather than received from the
// wire (e.g. a timeout 408, or the zero-hop OPTIONS reply).
type Nkport struct {
	Transport TransportProto
	Local     Addr
	Remote    Addr
	// Socket is an opaque per-association handle owned by the transport
	// layer. A nil Socket tells the transport to open/pick a fresh
	// association rather than reuse whatever produced this Nkport.
	Socket any
}

// ClearSocket returns a copy of np with Socket cleared, forcing the
// transport to re-resolve a destination association from Remote/Transport.
func (np *Nkport) ClearSocket() *Nkport {
	if np == nil {
		return nil
	}
	np2 := *np
	np2.Socket = nil
	return &np2
}

// Clone returns a shallow copy of np (the Socket handle is shared, never
// deep-copied).
func (np *Nkport) Clone() *Nkport {
	if np == nil {
		return nil
	}
	np2 := *np
	return &np2
}

// SipMsg is an immutable SIP request or response as seen by the routing and
// transaction logic. Header fields the proxy core actually inspects are
// promoted to named fields; everything else lives in Headers.
type SipMsg struct {
	Class MsgClass

	ReqURI Uri // valid on requests only

	From *header.From
	To   *header.To

	CallID      header.CallID
	CSeq        header.CSeq
	Via         header.Via
	MaxForwards header.MaxForwards

	Headers map[header.Name]header.Header
	Body    []byte

	MsgID      string
	TransID    string
	DialogID   string
	NkPort     *Nkport
}

// NewRequest builds an immutable request SipMsg.
func NewRequest(method RequestMethod, reqURI Uri) *SipMsg {
	return &SipMsg{
		Class:   reqClass(method),
		ReqURI:  reqURI.StripExt(),
		Headers: make(map[header.Name]header.Header),
	}
}

// NewResponse builds an immutable response SipMsg.
func NewResponse(code uint, reason string) *SipMsg {
	return &SipMsg{
		Class:   respClass(code, reason),
		Headers: make(map[header.Name]header.Header),
	}
}

// Method returns the request method, or "" for a response.
func (m *SipMsg) Method() RequestMethod {
	if m == nil {
		return ""
	}
	return m.Class.Method
}

// Code returns the response status code, or 0 for a request.
func (m *SipMsg) Code() uint {
	if m == nil {
		return 0
	}
	return m.Class.Code
}

// Header returns the named header, if present.
func (m *SipMsg) Header(name header.Name) (header.Header, bool) {
	if m == nil {
		return nil, false
	}
	h, ok := m.Headers[name.ToCanonic()]
	return h, ok
}

// WithHeader returns a shallow copy of m with the named header set.
func (m *SipMsg) WithHeader(h header.Header) *SipMsg {
	m2 := m.clone()
	m2.Headers[h.CanonicName()] = h
	return m2
}

// WithMaxForwards returns a shallow copy of m with Max-Forwards set to v.
func (m *SipMsg) WithMaxForwards(v header.MaxForwards) *SipMsg {
	m2 := m.clone()
	m2.MaxForwards = v
	return m2
}

// WithReqURI returns a shallow copy of m with the Request-URI set to u.
func (m *SipMsg) WithReqURI(u Uri) *SipMsg {
	m2 := m.clone()
	m2.ReqURI = u.StripExt()
	return m2
}

// WithVia returns a shallow copy of m with the Via stack replaced.
func (m *SipMsg) WithVia(via header.Via) *SipMsg {
	m2 := m.clone()
	m2.Via = via
	return m2
}

// WithTo returns a shallow copy of m with To replaced.
func (m *SipMsg) WithTo(to *header.To) *SipMsg {
	m2 := m.clone()
	m2.To = to
	return m2
}

// WithNkPort returns a shallow copy of m with the transport handle replaced.
func (m *SipMsg) WithNkPort(np *Nkport) *SipMsg {
	m2 := m.clone()
	m2.NkPort = np
	return m2
}

// ToTag returns the tag parameter of the To header, if any.
func (m *SipMsg) ToTag() (string, bool) {
	if m == nil || m.To == nil {
		return "", false
	}
	return m.To.Tag()
}

// FromTag returns the tag parameter of the From header, if any.
func (m *SipMsg) FromTag() (string, bool) {
	if m == nil || m.From == nil {
		return "", false
	}
	return m.From.Tag()
}

// IsLocal reports whether the message was synthesized by this node rather
// than received over the wire.
func (m *SipMsg) IsLocal() bool { return m == nil || m.NkPort == nil }

func (m *SipMsg) clone() *SipMsg {
	m2 := *m
	m2.Headers = make(map[header.Name]header.Header, len(m.Headers))
	for k, v := range m.Headers {
		m2.Headers[k] = v.Clone()
	}
	m2.Via = header.Via(cloneHeaderSlice(m.Via))
	return &m2
}

func cloneHeaderSlice(hops []header.ViaHop) []header.ViaHop {
	if hops == nil {
		return nil
	}
	out := make([]header.ViaHop, len(hops))
	for i, h := range hops {
		out[i] = h.Clone()
	}
	return out
}
