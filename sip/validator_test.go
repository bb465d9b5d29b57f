package sip_test

import (
	"testing"

	"github.com/nksip/sipcore/header"
	"github.com/nksip/sipcore/sip"
)

func TestCheck(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		maxFwd     header.MaxForwards
		method     sip.RequestMethod
		path       bool
		supported  *header.Supported
		wantReply  *uint
		wantMaxFwd header.MaxForwards
	}{
		{
			name:       "decrements Max-Forwards and forwards",
			maxFwd:     70,
			method:     sip.MethodInvite,
			wantMaxFwd: 69,
		},
		{
			name:      "zero Max-Forwards on non-OPTIONS is too many hops",
			maxFwd:    0,
			method:    sip.MethodInvite,
			wantReply: ptr(uint(483)),
		},
		{
			name:      "zero Max-Forwards on OPTIONS succeeds locally",
			maxFwd:    0,
			method:    sip.MethodOptions,
			wantReply: ptr(uint(200)),
		},
		{
			name:      "path required but absent",
			maxFwd:    70,
			method:    sip.MethodRegister,
			path:      true,
			wantReply: ptr(uint(421)),
		},
		{
			name:       "path required and present",
			maxFwd:     70,
			method:     sip.MethodRegister,
			path:       true,
			supported:  &header.Supported{"path"},
			wantMaxFwd: 69,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			req := sip.NewRequest(c.method, mustURI(t, "sip:bob@example.com"))
			req.MaxForwards = c.maxFwd
			if c.supported != nil {
				req = req.WithHeader(*c.supported)
			}

			got, reply := sip.Check(req, sip.ValidatorOptions{Path: c.path})

			if c.wantReply != nil {
				if reply == nil || reply.Code != *c.wantReply {
					t.Fatalf("Check() reply = %+v, want code %d", reply, *c.wantReply)
				}
				return
			}
			if reply != nil {
				t.Fatalf("Check() reply = %+v, want nil", reply)
			}
			if got.MaxForwards != c.wantMaxFwd {
				t.Fatalf("Check() MaxForwards = %d, want %d", got.MaxForwards, c.wantMaxFwd)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }
