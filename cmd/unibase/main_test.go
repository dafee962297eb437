package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	assert.Regexp(t, `^unibase version \d+\.\d+\.\d+\n$`, execute(t, "", "version"))
}

func TestToolsCommand(t *testing.T) {
	out := execute(t, "", "tools")
	for _, name := range []string{"add_or_replace_cuboid", "place_object", "remove_object"} {
		assert.Contains(t, out, name)
	}

	var tools []map[string]any
	require.NoError(t, json.Unmarshal([]byte(execute(t, "", "tools", "--json")), &tools))
	assert.Len(t, tools, 7)
}

func TestParseCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.scad")
	src := "// Object: ball\ntranslate([1, 2, 3]) rotate([0, 0, 0]) sphere(r=2, $fn=64);"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	var objs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(execute(t, "", "parse", path)), &objs))
	require.Len(t, objs, 1)
	assert.Equal(t, "ball", objs[0]["objectId"])

	require.NoError(t, json.Unmarshal([]byte(execute(t, src, "parse", "-")), &objs))
	assert.Len(t, objs, 1)
}

func TestRenderCommand_BlankInput(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "absent.yaml")
	out := execute(t, "   \n", "render", "-", "--config", cfgPath)
	assert.Equal(t, "solid empty\nendsolid empty", out)
}
