package transcript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLineNumbering(t *testing.T) {
	tx := New("sess", "alpha\nbeta\ngamma\n")

	assert.Equal(t, 3, tx.LineCount())
	assert.Equal(t, "alpha", tx.Line(1))
	assert.Equal(t, "gamma", tx.Line(3))
	assert.Equal(t, "", tx.Line(0))
	assert.Equal(t, "", tx.Line(4))
}

func TestNewNoTrailingNewline(t *testing.T) {
	tx := New("sess", "alpha\nbeta")

	assert.Equal(t, 2, tx.LineCount())
	assert.Equal(t, "beta", tx.Line(2))
	assert.Equal(t, "alpha\nbeta", tx.Text())
}

func TestNewEmpty(t *testing.T) {
	tx := New("sess", "")
	assert.Equal(t, 0, tx.LineCount())
	assert.Equal(t, "", tx.Text())
}

func TestLinesClampsBounds(t *testing.T) {
	tx := New("sess", "a\nb\nc\nd\n")

	assert.Equal(t, []string{"b", "c"}, tx.Lines(2, 4))
	assert.Equal(t, []string{"a", "b", "c", "d"}, tx.Lines(-5, 99))
	assert.Nil(t, tx.Lines(3, 3))
	assert.Nil(t, tx.Lines(4, 2))
}

func TestWindow(t *testing.T) {
	tx := New("sess", "a\nb\nc\n")

	prev, cur, next := tx.Window(1)
	assert.Equal(t, "", prev)
	assert.Equal(t, "a", cur)
	assert.Equal(t, "b", next)

	prev, cur, next = tx.Window(3)
	assert.Equal(t, "b", prev)
	assert.Equal(t, "c", cur)
	assert.Equal(t, "", next)
}

func TestLoadUsesFilenameStem(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session-042.txt")
	require.NoError(t, os.WriteFile(path, []byte("$ ls\nfile1\n"), 0o644))

	tx, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "session-042", tx.FileID())
	assert.Equal(t, 2, tx.LineCount())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
