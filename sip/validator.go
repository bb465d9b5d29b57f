package sip

import (
	"slices"
	"strings"

	"github.com/nksip/sipcore/header"
)

// ValidatorOptions tunes the Request Validator's path-extension check.
type ValidatorOptions struct {
	// Path, if true, requires the request to list "path" in Supported.
	Path bool
}

// Check runs the validator's ordered rules against req and returns either
// the (Max-Forwards-decremented) request to forward, or a [ReplySpec]
// describing why forwarding must stop here.
func Check(req *SipMsg, opts ValidatorOptions) (*SipMsg, *ReplySpec) {
	mf := req.MaxForwards

	switch {
	case mf > 0:
		req = req.WithMaxForwards(mf - 1)
	case req.Method() == MethodOptions:
		return nil, optionsZeroHopsReply()
	default:
		return nil, NewReplySpec(uint(respStatusTooManyHops), string(ErrTooManyHops))
	}

	if opts.Path {
		supported, _ := req.Header(header.Name("Supported"))
		sup, _ := supported.(header.Supported)
		if !slices.ContainsFunc(sup, func(s string) bool { return strings.EqualFold(s, "path") }) {
			return nil, NewReplySpec(uint(respStatusExtensionRequired), `extension_required("path")`)
		}
	}

	return req, nil
}

// optionsZeroHopsReply synthesizes the success response §4.2 specifies for
// a zero-Max-Forwards OPTIONS request: carry Supported/Accept/Allow and the
// reason phrase "Max Forwards" rather than failing the request.
func optionsZeroHopsReply() *ReplySpec {
	spec := NewReplySpec(uint(respStatusOK), "Max Forwards")
	spec = spec.WithHeader(header.Supported{})
	spec = spec.WithHeader(header.Accept{})
	spec = spec.WithHeader(header.Allow{})
	return spec
}

const (
	respStatusOK                = 200
	respStatusTooManyHops       = 483
	respStatusExtensionRequired = 421
)
