package sip

import (
	"fmt"
	"io"

	"braces.dev/errtrace"

	"github.com/nksip/sipcore/internal/types"
	"github.com/nksip/sipcore/uri"
)

// URI represents generic URI (SIP, SIPS, Tel, ...etc).
// See [uri.URI].
type URI = uri.URI

// ParseURI parses any URI from a given input s (string or []byte).
// See [uri.Parse].
func ParseURI[T ~string | ~[]byte](s T) (URI, error) { return errtrace.Wrap2(uri.Parse(s)) }

// Values represents URI parameters or headers as a multi-value map.
type Values = types.Values

// Uri wraps an [URI] with the extension slots the router and dialog layers
// attach to a destination that a plain parsed URI has no notion of: the
// service-hook options (ExtOpts) and headers (ExtHeaders) a fork target
// should carry to its outgoing request. A [Uri] used as a Request-URI must
// have both slots empty; [Uri.StripExt] enforces that.
type Uri struct {
	Base       URI
	ExtOpts    Values
	ExtHeaders Values
}

// NewUri wraps u with empty extension slots.
func NewUri(u URI) Uri { return Uri{Base: u} }

// IsZero reports whether the Uri has no base URI.
func (u Uri) IsZero() bool { return u.Base == nil }

// IsValid reports whether the base URI is syntactically valid.
func (u Uri) IsValid() bool { return types.IsValid(u.Base) }

// IsRequestURI reports whether u is fit to be used as a Request-URI,
// i.e. carries no extension options or headers.
func (u Uri) IsRequestURI() bool { return len(u.ExtOpts) == 0 && len(u.ExtHeaders) == 0 }

// StripExt returns a copy of u with the extension slots cleared, ready to be
// used as a Request-URI.
func (u Uri) StripExt() Uri {
	u.ExtOpts = nil
	u.ExtHeaders = nil
	return u
}

// Clone returns a deep copy of u.
func (u Uri) Clone() Uri {
	return Uri{
		Base:       types.Clone[URI](u.Base),
		ExtOpts:    u.ExtOpts.Clone(),
		ExtHeaders: u.ExtHeaders.Clone(),
	}
}

// Equal compares u against another Uri, ignoring extension slots, which are
// routing-local annotations rather than part of the URI's own identity.
func (u Uri) Equal(val any) bool {
	var other Uri
	switch v := val.(type) {
	case Uri:
		other = v
	case *Uri:
		if v == nil {
			return false
		}
		other = *v
	default:
		return false
	}
	return types.IsEqual(u.Base, other.Base)
}

// String returns the string representation of the wrapped base URI.
func (u Uri) String() string {
	if u.Base == nil {
		return ""
	}
	return u.Base.String()
}

// Format implements fmt.Formatter, delegating to the base URI.
func (u Uri) Format(f fmt.State, verb rune) {
	switch verb {
	case 's', 'q':
		if u.Base == nil {
			fmt.Fprint(f, "")
			return
		}
		if bf, ok := u.Base.(fmt.Formatter); ok {
			bf.Format(f, verb)
			return
		}
		fmt.Fprint(f, u.Base.String())
		return
	default:
		fmt.Fprintf(f, fmt.FormatString(f, verb), u.Base)
		return
	}
}

// RenderTo writes the base URI to w, ignoring the extension slots, which
// never appear on the wire.
func (u Uri) RenderTo(w io.Writer, opts *uri.RenderOptions) (int, error) {
	if u.Base == nil {
		return 0, nil
	}
	return errtrace.Wrap2(u.Base.RenderTo(w, opts))
}

// Render returns the wire representation of the base URI.
func (u Uri) Render(opts *uri.RenderOptions) string {
	if u.Base == nil {
		return ""
	}
	return u.Base.Render(opts)
}

// ParseUri parses a single URI leaf from s and wraps it with empty extension
// slots. It never panics; a parse failure is reported via err.
func ParseUri[T ~string | ~[]byte](s T) (Uri, error) {
	u, err := uri.Parse(s)
	if err != nil {
		return Uri{}, errtrace.Wrap(err)
	}
	return NewUri(u), nil
}
