package sip

import "github.com/nksip/sipcore/header"

// buildAck constructs the ACK companion to a non-2xx final response per
// RFC 3261 §17.1.1.3: same Call-ID, From, and CSeq number as the original
// INVITE with method rewritten to ACK, To taken from the response (so it
// carries the remote tag), and a single Via hop copied from the request's
// topmost Via (same branch, so the ACK matches the same server transaction
// as the INVITE it answers).
func buildAck(req, resp *SipMsg) *SipMsg {
	ack := NewRequest(MethodAck, req.ReqURI)
	ack.From = req.From
	if resp.To != nil {
		to := *resp.To
		ack.To = &to
	} else {
		ack.To = req.To
	}
	ack.CallID = req.CallID
	ack.CSeq = header.CSeq{SeqNum: req.CSeq.SeqNum, Method: MethodAck}
	ack.Via = firstViaHop(req.Via)
	ack.MaxForwards = req.MaxForwards
	ack.NkPort = req.NkPort
	ack.DialogID = req.DialogID
	return ack
}

// buildCancel constructs the CANCEL request for req per RFC 3261 §9.1: it
// shares the R-URI, From/To (without any tag the final response has not yet
// supplied), Call-ID, CSeq number and topmost Via with the request it
// cancels.
func buildCancel(req *SipMsg) *SipMsg {
	cancel := NewRequest(MethodCancel, req.ReqURI)
	cancel.From = req.From
	cancel.To = req.To
	cancel.CallID = req.CallID
	cancel.CSeq = header.CSeq{SeqNum: req.CSeq.SeqNum, Method: MethodCancel}
	cancel.Via = firstViaHop(req.Via)
	cancel.MaxForwards = req.MaxForwards
	cancel.NkPort = req.NkPort
	return cancel
}

func firstViaHop(via header.Via) header.Via {
	if len(via) == 0 {
		return nil
	}
	return header.Via{via[0].Clone()}
}
