package gateway

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSinkWriteCommitsOnce(t *testing.T) {
	rec := httptest.NewRecorder()
	s := newSink(rec)
	require.False(t, s.Started())

	require.NoError(t, s.Write("a"))
	require.NoError(t, s.Write("b"))
	require.True(t, s.Started())
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ab", rec.Body.String())
	require.True(t, rec.Flushed)
}

func TestSinkCloseIsIdempotent(t *testing.T) {
	rec := httptest.NewRecorder()
	s := newSink(rec)

	s.Close()
	s.Close()
	require.Equal(t, http.StatusOK, rec.Code)
	require.ErrorIs(t, s.Write("late"), errSinkClosed)
	require.Empty(t, rec.Body.String())
}

func TestSinkFailBeforeStart(t *testing.T) {
	rec := httptest.NewRecorder()
	s := newSink(rec)

	s.Fail(errors.New("no model"))
	s.Close()
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "no model")
}

func TestSinkFailAfterStartAborts(t *testing.T) {
	rec := httptest.NewRecorder()
	s := newSink(rec)
	require.NoError(t, s.Write("half"))

	require.PanicsWithValue(t, http.ErrAbortHandler, func() { s.Fail(errors.New("lost")) })
	// The deferred Close after an abort must not panic or write.
	s.Close()
	require.Equal(t, "half", rec.Body.String())
}
