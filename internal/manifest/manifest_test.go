package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/blgate/internal/errs"
)

func writeManifest(t *testing.T, dir, category, key, content string) {
	t.Helper()
	path := Path(dir, category, key)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestPath(t *testing.T) {
	require.Equal(t, filepath.Join("base", "agent-tools", "echo", "beamlit.yaml"), Path("base", "agent-tools", "echo"))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "agent-tools", "echo-tool", "name: echo-tool\n")

	m, err := Load(dir, "agent-tools", "echo-tool")
	require.NoError(t, err)
	require.Equal(t, "echo-tool", m.Name())
	require.Empty(t, m.Image())
	require.Equal(t, Path(dir, "agent-tools", "echo-tool"), m.File())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(t.TempDir(), "agent-tools", "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NotErrorIs(t, err, errs.ErrParse)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]struct {
		content string
		issue   string
	}{
		"broken yaml":    {content: "name: [broken"},
		"not a mapping":  {content: "- a\n- b\n"},
		"empty document": {content: ""},
		"missing name":   {content: "description: nothing\n", issue: "required"},
		"numeric name":   {content: "name: 12\n", issue: "type"},
		"unsafe name":    {content: "name: ../escape\n", issue: "pattern"},
		"bad parameters": {content: "name: ok\nparameters: nope\n", issue: "type"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("beamlit.yaml", []byte(tc.content))
			require.ErrorIs(t, err, errs.ErrParse)
			if tc.issue == "" {
				return
			}
			issues := Issues(err)
			require.NotEmpty(t, issues)
			keywords := make([]string, 0, len(issues))
			for _, issue := range issues {
				keywords = append(keywords, issue.Keyword)
			}
			require.Contains(t, keywords, tc.issue)
		})
	}
}

func TestSetImage(t *testing.T) {
	t.Run("appends image after existing fields", func(t *testing.T) {
		m, err := Parse("m", []byte("name: echo-tool\n"))
		require.NoError(t, err)
		m.SetImage("img:1")

		body, err := m.MarshalJSON()
		require.NoError(t, err)
		require.Equal(t, `{"name":"echo-tool","image":"img:1"}`, string(body))
	})

	t.Run("replaces image in place", func(t *testing.T) {
		m, err := Parse("m", []byte("image: old:0\nname: echo-tool\nkind: tool\n"))
		require.NoError(t, err)
		m.SetImage("img:2")

		body, err := m.MarshalJSON()
		require.NoError(t, err)
		require.Equal(t, `{"image":"img:2","name":"echo-tool","kind":"tool"}`, string(body))
		require.Equal(t, "img:2", m.Image())
	})

	t.Run("never touches name", func(t *testing.T) {
		m, err := Parse("m", []byte("name: echo-tool\n"))
		require.NoError(t, err)
		m.SetImage("name")
		require.Equal(t, "echo-tool", m.Name())
	})

	t.Run("empty ref is null", func(t *testing.T) {
		m, err := Parse("m", []byte("name: echo-tool\n"))
		require.NoError(t, err)
		m.SetImage("")

		body, err := m.MarshalJSON()
		require.NoError(t, err)
		require.Equal(t, `{"name":"echo-tool","image":null}`, string(body))
		require.Empty(t, m.Image())
	})
}

func TestMarshalJSONKeepsTypesAndOrder(t *testing.T) {
	content := `name: search
description: Web search
enabled: true
retries: 3
ratio: 0.5
empty: ~
parameters:
  - name: query
    type: string
    required: true
configuration: &cfg
  region: eu
mirror: *cfg
`
	m, err := Parse("m", []byte(content))
	require.NoError(t, err)

	body, err := m.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t,
		`{"name":"search","description":"Web search","enabled":true,"retries":3,"ratio":0.5,"empty":null,`+
			`"parameters":[{"name":"query","type":"string","required":true}],`+
			`"configuration":{"region":"eu"},"mirror":{"region":"eu"}}`,
		string(body),
	)
}
