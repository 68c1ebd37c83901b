package gateway

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/blgate/internal/agent"
)

// fakeRunner replays fixed fragments, then an optional error.
type fakeRunner struct {
	fragments []string
	err       error
	got       []agent.Invocation
}

func (f *fakeRunner) Stream(_ context.Context, inv agent.Invocation) iter.Seq2[string, error] {
	f.got = append(f.got, inv)
	return func(yield func(string, error) bool) {
		for _, frag := range f.fragments {
			if !yield(frag, nil) {
				return
			}
		}
		if f.err != nil {
			yield("", f.err)
		}
	}
}

func newTextServer(t *testing.T, runner Runner) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(routes(runner, "gpt-test", nil, nil))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestTextHandlerStreams(t *testing.T) {
	runner := &fakeRunner{fragments: []string{"Hel", "lo ", "there"}}
	srv := newTextServer(t, runner)

	resp := post(t, srv.URL+"/", `{"inputs":"hello"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "Hello there", string(body))
	require.Len(t, runner.got, 1)
	require.Equal(t, "hello", runner.got[0].Input)
}

func TestTextHandlerInputs(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "inputs", body: `{"inputs":"a"}`, want: "a"},
		{name: "legacy input", body: `{"input":"b"}`, want: "b"},
		{name: "inputs wins", body: `{"inputs":"a","input":"b"}`, want: "a"},
		{name: "empty inputs falls back", body: `{"inputs":"","input":"b"}`, want: "b"},
		{name: "missing", body: `{}`, want: ""},
		{name: "empty body", body: ``, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{fragments: []string{"ok"}}
			srv := newTextServer(t, runner)

			resp := post(t, srv.URL+"/", tt.body, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Len(t, runner.got, 1)
			require.Equal(t, tt.want, runner.got[0].Input)
		})
	}
}

func TestTextHandlerRejectsInvalidJSON(t *testing.T) {
	runner := &fakeRunner{}
	srv := newTextServer(t, runner)

	resp := post(t, srv.URL+"/", `{"inputs":`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Empty(t, runner.got)
}

func TestTextHandlerErrorBeforeFirstFragment(t *testing.T) {
	srv := newTextServer(t, &fakeRunner{err: errors.New("model exploded")})

	resp := post(t, srv.URL+"/", `{"inputs":"hi"}`, nil)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "model exploded")
}

func TestTextHandlerErrorMidStreamTruncates(t *testing.T) {
	srv := newTextServer(t, &fakeRunner{fragments: []string{"partial "}, err: errors.New("model exploded")})

	resp := post(t, srv.URL+"/", `{"inputs":"hi"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.Error(t, err)
	require.Equal(t, "partial ", string(body))
}

func TestTextHandlerThreadID(t *testing.T) {
	runner := &fakeRunner{}
	srv := newTextServer(t, runner)

	post(t, srv.URL+"/", `{}`, http.Header{"X-Blaxel-Thread-Id": {"thread-1"}})
	post(t, srv.URL+"/", `{}`, http.Header{"Thread-Id": {"thread-2"}})
	post(t, srv.URL+"/", `{}`, nil)

	require.Len(t, runner.got, 3)
	require.Equal(t, "thread-1", runner.got[0].ConversationID)
	require.Equal(t, "thread-2", runner.got[1].ConversationID)
	require.Len(t, runner.got[2].ConversationID, 36)
}

func TestDecodeInput(t *testing.T) {
	got, err := decodeInput(strings.NewReader("  \n"))
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = decodeInput(strings.NewReader("[1,2]"))
	require.Error(t, err)
}
