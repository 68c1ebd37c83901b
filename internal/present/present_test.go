package present

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"
)

func TestMakeGradientRamp(t *testing.T) {
	ramp := MakeGradientRamp(5)
	require.Len(t, ramp, 5)
	for _, c := range ramp {
		require.Regexp(t, `^#[0-9a-f]{6}$`, string(c))
	}
	require.NotEqual(t, ramp[0], ramp[4])
}

func TestMakeGradientTextShortStrings(t *testing.T) {
	require.Equal(t, "ab", MakeGradientText(lipgloss.NewStyle(), "ab"))
}

func TestPrintConfirmationPlain(t *testing.T) {
	if IsErrorTTY() {
		t.Skip("stderr is a terminal")
	}
	var buf bytes.Buffer
	PrintConfirmation(&buf, "published", "function echo-tool")
	require.Equal(t, "PUBLISHED function echo-tool\n", buf.String())

	buf.Reset()
	PrintConfirmation(&buf, "", "x")
	require.Equal(t, "DONE x\n", buf.String())
}
