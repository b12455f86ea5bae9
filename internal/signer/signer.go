package signer

import (
	"context"
	"fmt"
	"strings"
)

// Signer maps a request fixture to a signature.
type Signer interface {
	Sign(ctx context.Context, query, identity string) (string, error)
}

// Func adapts a plain function to the Signer interface.
type Func func(ctx context.Context, query, identity string) (string, error)

// Sign calls f.
func (f Func) Sign(ctx context.Context, query, identity string) (string, error) {
	return f(ctx, query, identity)
}

// Kind selects how an artifact is loaded.
type Kind string

const (
	KindJS     Kind = "js"
	KindNative Kind = "native"
)

// Entry points exposed by the reference signing script.
const (
	EntryDetail = "sign_datail"
	EntryReply  = "sign_reply"
)

// DefaultEntry is used when a js reference names no entry point.
const DefaultEntry = EntryDetail

// Ref addresses one signing artifact.
type Ref struct {
	Kind Kind

	// Target is a file path for js artifacts and a registry name for
	// native ones.
	Target string

	// Entry is the callable's name inside a js artifact.
	Entry string
}

// ParseRef parses "js:<path>[#<entry>]", "native:<name>" or a bare path.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, &LoadError{Code: ErrCodeBadReference, Message: "empty artifact reference"}
	}

	kind, rest, found := strings.Cut(s, ":")
	if !found || (Kind(kind) != KindJS && Kind(kind) != KindNative) {
		// Bare path. A Windows drive letter such as C:\ lands here too.
		kind, rest = string(KindJS), s
	}

	switch Kind(kind) {
	case KindNative:
		if rest == "" || strings.Contains(rest, "#") {
			return Ref{}, &LoadError{Code: ErrCodeBadReference, Ref: s, Message: "native reference needs a plain name"}
		}
		return Ref{Kind: KindNative, Target: rest}, nil
	default:
		path, entry, _ := strings.Cut(rest, "#")
		if path == "" {
			return Ref{}, &LoadError{Code: ErrCodeBadReference, Ref: s, Message: "js reference needs a path"}
		}
		if entry == "" {
			entry = DefaultEntry
		}
		return Ref{Kind: KindJS, Target: path, Entry: entry}, nil
	}
}

// MustParseRef is like ParseRef but panics on error.
// Use only in tests or with constant inputs.
func MustParseRef(s string) Ref {
	r, err := ParseRef(s)
	if err != nil {
		panic(err)
	}
	return r
}

// String renders the reference in the form ParseRef accepts.
func (r Ref) String() string {
	if r.Kind == KindNative {
		return fmt.Sprintf("native:%s", r.Target)
	}
	return fmt.Sprintf("js:%s#%s", r.Target, r.Entry)
}
