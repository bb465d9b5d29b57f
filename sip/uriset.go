package sip

// UriSet is the canonical `[[Uri]]` shape a fork operates over: the outer
// slice holds serial steps, tried one after another; each inner slice is a
// parallel group of targets for that step. The canonical empty set is a
// single empty group: [][]Uri{{}}.
type UriSet [][]Uri

// Empty reports whether the set carries no destinations at all.
func (s UriSet) Empty() bool {
	for _, group := range s {
		if len(group) > 0 {
			return false
		}
	}
	return true
}

// EmptyUriSet is the canonical "no destinations" value.
func EmptyUriSet() UriSet { return UriSet{{}} }

// FirstURI returns the first URI of the first non-empty group, if any.
func (s UriSet) FirstURI() (Uri, bool) {
	for _, group := range s {
		if len(group) > 0 {
			return group[0], true
		}
	}
	return Uri{}, false
}

// Normalize converts heterogeneous caller input into a [UriSet]. It never
// panics and never returns an error: unparsable leaves disappear silently,
// and a wholly unparsable or unrecognized input yields [EmptyUriSet].
func Normalize(input any) UriSet {
	switch v := input.(type) {
	case Uri:
		return UriSet{{v.StripExt()}}
	case *Uri:
		if v == nil {
			return EmptyUriSet()
		}
		return UriSet{{v.StripExt()}}
	case URI:
		return UriSet{{NewUri(v)}}
	case string:
		return normalizeString(v)
	case []byte:
		return normalizeString(string(v))
	case []any:
		return normalizeList(v)
	default:
		return EmptyUriSet()
	}
}

func normalizeString(s string) UriSet {
	group := parseURIList(s)
	if len(group) == 0 {
		return EmptyUriSet()
	}
	return UriSet{group}
}

// parseURIList parses every leaf out of s and strips extension slots from
// each, per the Normalizer's invariant. A leaf that fails to parse is
// dropped rather than aborting the whole parse.
func parseURIList(s string) []Uri {
	leaves := splitURIList(s)
	out := make([]Uri, 0, len(leaves))
	for _, leaf := range leaves {
		u, err := ParseUri(leaf)
		if err != nil {
			continue
		}
		out = append(out, u.StripExt())
	}
	return out
}

// splitURIList splits a comma-separated list of URIs, respecting
// angle-bracket and double-quote nesting so commas inside a URI's headers
// or a display name do not split it.
func splitURIList(s string) []string {
	var (
		parts  []string
		depth  int
		inStr  bool
		start  int
	)
	for i, r := range s {
		switch r {
		case '"':
			inStr = !inStr
		case '<':
			if !inStr {
				depth++
			}
		case '>':
			if !inStr && depth > 0 {
				depth--
			}
		case ',':
			if !inStr && depth == 0 {
				parts = append(parts, trimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, trimSpace(s[start:]))

	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func trimSpace(s string) string {
	for len(s) > 0 && isSpace(s[0]) {
		s = s[1:]
	}
	for len(s) > 0 && isSpace(s[len(s)-1]) {
		s = s[:len(s)-1]
	}
	return s
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' || b == '\n' }

// normalizeList implements the flat-list and multi-mode cases of §4.1's
// input-shape table: a list with no nested list/string elements collapses
// into one parallel group; a list mixing nested lists/strings with loose
// elements treats each nested list/string as its own serial step and
// accumulates runs of loose elements into parallel groups at the
// boundaries between them.
func normalizeList(items []any) UriSet {
	if !hasNestedElement(items) {
		group := make([]Uri, 0, len(items))
		for _, item := range items {
			group = appendLeaf(group, item)
		}
		if len(group) == 0 {
			return EmptyUriSet()
		}
		return UriSet{group}
	}

	var (
		set   UriSet
		accum []Uri
	)
	flush := func() {
		if len(accum) > 0 {
			set = append(set, accum)
			accum = nil
		}
	}
	for _, item := range items {
		switch v := item.(type) {
		case []any:
			flush()
			nested := normalizeList(v)
			set = append(set, nested...)
		case string:
			flush()
			leaves := parseURIList(v)
			if len(leaves) > 0 {
				set = append(set, leaves)
			}
		case []byte:
			flush()
			leaves := parseURIList(string(v))
			if len(leaves) > 0 {
				set = append(set, leaves)
			}
		default:
			accum = appendLeaf(accum, item)
		}
	}
	flush()

	if len(set) == 0 {
		return EmptyUriSet()
	}
	return set
}

// hasNestedElement reports whether items mixes in a nested list or a string
// (raw or []byte), the shapes that force multi-mode serial-step treatment:
// a string leaf can itself expand into more than one URI (a comma-separated
// list), so it has to be parsed and treated as its own serial step rather
// than folded into the flat branch's single parallel group.
func hasNestedElement(items []any) bool {
	for _, item := range items {
		switch item.(type) {
		case []any, []byte, string:
			return true
		}
	}
	return false
}

func appendLeaf(group []Uri, item any) []Uri {
	switch v := item.(type) {
	case Uri:
		group = append(group, v.StripExt())
	case *Uri:
		if v != nil {
			group = append(group, v.StripExt())
		}
	case URI:
		group = append(group, NewUri(v))
	case string:
		u, err := ParseUri(v)
		if err == nil {
			group = append(group, u.StripExt())
		}
	}
	return group
}
