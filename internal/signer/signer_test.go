package signer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		in   string
		want Ref
	}{
		{"js:sign.js#sign_reply", Ref{Kind: KindJS, Target: "sign.js", Entry: "sign_reply"}},
		{"js:sign.js", Ref{Kind: KindJS, Target: "sign.js", Entry: DefaultEntry}},
		{"sign.js", Ref{Kind: KindJS, Target: "sign.js", Entry: DefaultEntry}},
		{"/opt/oracle/sign.js#sign", Ref{Kind: KindJS, Target: "/opt/oracle/sign.js", Entry: "sign"}},
		{`C:\oracle\sign.js`, Ref{Kind: KindJS, Target: `C:\oracle\sign.js`, Entry: DefaultEntry}},
		{"native:reference", Ref{Kind: KindNative, Target: "reference"}},
		{"  js:a.js  ", Ref{Kind: KindJS, Target: "a.js", Entry: DefaultEntry}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRef(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRef_Errors(t *testing.T) {
	for _, in := range []string{"", "   ", "js:", "js:#entry", "native:", "native:a#b"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseRef(in)
			require.Error(t, err)
			assert.Equal(t, ErrCodeBadReference, LoadErrorCodeOf(err))
		})
	}
}

func TestRef_StringRoundTrip(t *testing.T) {
	for _, in := range []string{"js:sign.js#sign_reply", "native:reference"} {
		ref := MustParseRef(in)
		assert.Equal(t, in, ref.String())
		assert.Equal(t, ref, MustParseRef(ref.String()))
	}
}

func TestMustParseRef_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParseRef("") })
}

func TestFunc(t *testing.T) {
	var s Signer = Func(func(_ context.Context, q, id string) (string, error) {
		return q + "|" + id, nil
	})
	got, err := s.Sign(context.Background(), "a=1", "ua")
	require.NoError(t, err)
	assert.Equal(t, "a=1|ua", got)
}

func TestErrorPredicates(t *testing.T) {
	le := &LoadError{Code: ErrCodeEntryArity, Ref: "js:x.js#f", Message: "bad"}
	assert.True(t, IsLoadError(le))
	assert.False(t, IsInvokeError(le))
	assert.Equal(t, ErrCodeEntryArity, LoadErrorCodeOf(le))
	assert.Equal(t, "ENTRY_ARITY: bad (artifact=js:x.js#f)", le.Error())

	ie := &InvokeError{Entry: "f", Message: "threw"}
	assert.True(t, IsInvokeError(ie))
	assert.False(t, IsLoadError(ie))
	assert.Equal(t, LoadErrorCode(""), LoadErrorCodeOf(ie))
	assert.Equal(t, "f: threw", ie.Error())
}
