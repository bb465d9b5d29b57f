package sip

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nksip/sipcore/header"
	"github.com/nksip/sipcore/internal/log"
)

// RouteOptions carries the caller-supplied routing options (the `opts`
// bag of §4.3), keyed the way the service hook and validator expect.
type RouteOptions struct {
	Stateless bool
	NoDialog  bool
	Path      bool
	Extra     Values
}

// RouteOutcome tags a [RouteResult] as one of the three shapes the Proxy
// Router can hand back to the transaction manager.
type RouteOutcome int

const (
	// RouteFork asks the transaction manager to spawn one or more child
	// UAC transactions over URISet.
	RouteFork RouteOutcome = iota
	// RouteReply short-circuits with Reply.
	RouteReply
	// RouteNoReply means the request has already been fully handled
	// (e.g. handed to the Stateless Relay) and needs no further action.
	RouteNoReply
)

// RouteResult is the Proxy Router's return value.
type RouteResult struct {
	Outcome RouteOutcome

	Trans   *Trans
	URISet  UriSet
	Opts    RouteOptions

	Reply *ReplySpec
	Call  *Call
}

// RouterOptions configures a [Router]. Zero value is a valid, usable
// Router backed by [log.Def].
type RouterOptions struct {
	logger *slog.Logger
}

// Logger returns the configured logger, defaulting to [log.Def].
func (o *RouterOptions) Logger() *slog.Logger {
	if o == nil || o.logger == nil {
		return log.Def
	}
	return o.logger
}

// WithLogger sets the router's logger.
func (o *RouterOptions) WithLogger(l *slog.Logger) *RouterOptions {
	if o == nil {
		o = &RouterOptions{}
	}
	o.logger = l
	return o
}

// Router implements the Proxy Router component (§4.3): it turns a
// caller-supplied destination set into either a fork request or a
// short-circuit reply.
type Router struct {
	hook ServiceHook
	opts *RouterOptions
}

// NewRouter builds a Router that consults hook for routing decisions.
func NewRouter(hook ServiceHook, opts *RouterOptions) *Router {
	return &Router{hook: hook, opts: opts}
}

func (r *Router) log() *slog.Logger { return r.opts.Logger() }

// Route runs the five-step algorithm of §4.3.
func (r *Router) Route(ctx context.Context, uriList any, opts RouteOptions, uasTrans *Trans, call *Call) (RouteResult, error) {
	uriSet := Normalize(uriList)
	if uriSet.Empty() {
		return RouteResult{
			Outcome: RouteReply,
			Reply:   NewReplySpec(uint(respStatusTemporarilyUnavailable), "Temporarily Unavailable"),
			Call:    call,
		}, nil
	}

	if r.hook != nil {
		res, err := r.hook.Invoke(ctx, HookRoute, HookArgs{
			UriSet:   uriSet,
			Opts:     opts.Extra,
			UasTrans: uasTrans,
			Call:     call,
		})
		if err != nil {
			return RouteResult{}, err
		}
		switch {
		case res.Reply != nil:
			return RouteResult{Outcome: RouteReply, Reply: res.Reply, Call: res.Call}, nil
		case res.Continue:
			uriSet = res.Args.UriSet
			if res.Args.UasTrans != nil {
				uasTrans = res.Args.UasTrans
			}
			if res.Args.Call != nil {
				call = res.Args.Call
			}
		}
	}

	req := uasTrans.Request()
	req, replySpec := Check(req, ValidatorOptions{Path: opts.Path})
	if replySpec != nil {
		return RouteResult{Outcome: RouteReply, Reply: replySpec, Call: call}, nil
	}
	uasTrans = uasTrans.withRequest(req)

	if req.Method() == MethodAck {
		if opts.Stateless {
			return RouteResult{Outcome: RouteNoReply, URISet: uriSet, Opts: opts, Call: call}, nil
		}
		return RouteResult{Outcome: RouteFork, Trans: uasTrans, URISet: uriSet, Opts: opts, Call: call}, nil
	}

	if pr, ok := req.Header(header.Name("Proxy-Require")); ok {
		if hdr, ok := pr.(header.ProxyRequire); ok && len(hdr) > 0 {
			tokens := make([]string, len(hdr))
			copy(tokens, hdr)
			return RouteResult{
				Outcome: RouteReply,
				Reply:   NewReplySpec(uint(respStatusBadExtension), strings.Join(tokens, ",")),
				Call:    call,
			}, nil
		}
	}

	if opts.Stateless {
		return RouteResult{Outcome: RouteNoReply, Trans: uasTrans, URISet: uriSet, Opts: opts, Call: call}, nil
	}
	return RouteResult{Outcome: RouteFork, Trans: uasTrans, URISet: uriSet, Opts: opts, Call: call}, nil
}

const respStatusBadExtension = 420
const respStatusTemporarilyUnavailable = 480
