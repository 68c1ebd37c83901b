package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorKind(t *testing.T) {
	base := errors.New("boom")
	err := New(ErrNotFound, base, "Could not find it")

	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, base)
	require.NotErrorIs(t, err, ErrParse)
	require.Equal(t, "boom", err.Error())
	require.Equal(t, "Could not find it", err.ReasonText())

	wrapped := fmt.Errorf("outer: %w", err)
	require.ErrorIs(t, wrapped, ErrNotFound)

	var e Error
	require.ErrorAs(t, wrapped, &e)
	require.Equal(t, "Could not find it", e.Reason)
}

func TestErrorFallbacks(t *testing.T) {
	require.Equal(t, "reason only", Error{Reason: "reason only"}.Error())
	require.Equal(t, "malformed", Error{Kind: ErrParse}.Error())
	require.Equal(t, "unknown error", Error{}.Error())
	require.NotErrorIs(t, Wrap(errors.New("x"), "r"), ErrParse)
}

func TestWrapf(t *testing.T) {
	base := errors.New("dial tcp: refused")
	err := Wrapf(base, "Could not list tools for function %s.", "search")

	require.ErrorIs(t, err, base)
	require.Equal(t, "dial tcp: refused", err.Error())
	require.Equal(t, "Could not list tools for function search.", err.ReasonText())
}
