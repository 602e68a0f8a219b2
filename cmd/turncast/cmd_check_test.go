package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCheck(t *testing.T, path string) (string, error) {
	t.Helper()
	cmd := newCheckCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{path})
	err := cmd.Execute()
	return out.String(), err
}

func TestCheckValidSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
input_dir: data/raw
output_dir: data/out
models: [m1, m2]
judge_model: j
`), 0o644))

	out, err := runCheck(t, path)
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
}

func TestCheckInvalidSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
input_dir: data/raw
output_dir: data/out
models: [only-one]
`), 0o644))

	out, err := runCheck(t, path)
	require.Error(t, err)
	assert.Contains(t, out, "problem(s)")
}

func TestCheckMissingFile(t *testing.T) {
	_, err := runCheck(t, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
