package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCommand(args ...string) (stdout, stderr string, err error) {
	cmd := NewRootCommand()
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err = cmd.Execute()

	return outBuf.String(), errBuf.String(), err
}

// paramDir returns a temp base directory pre-filled with files.
func paramDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected *ExitError, got %T: %v", err, err)
	return exitErr.Code
}

// ---------------------------------------------------------------------------
// Help output
// ---------------------------------------------------------------------------

func TestRootCommand_Help(t *testing.T) {
	stdout, _, err := executeCommand("--help")
	require.NoError(t, err)

	for _, sub := range []string{"serve", "list", "get", "set", "rm", "demo"} {
		assert.Contains(t, stdout, sub, "help should mention %q subcommand", sub)
	}
}

func TestRootCommand_UnknownFlag(t *testing.T) {
	_, _, err := executeCommand("list", "--bogus")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(t, err))
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	_, _, err := executeCommand("list", "--config", "/nonexistent/painless.yaml")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(t, err))
}

func TestRootCommand_InvalidLogLevel(t *testing.T) {
	_, _, err := executeCommand("list", "--dir", t.TempDir(), "--log-level", "loud")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(t, err))
}

func TestRootCommand_ConfigFileBaseDir(t *testing.T) {
	dir := paramDir(t, map[string]string{"from_config": "7\n"})
	cfgPath := filepath.Join(t.TempDir(), "painless.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("server:\n  base_dir: "+dir+"\n"), 0o600))

	stdout, _, err := executeCommand("list", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "from_config = 7\n", stdout)
}

// ---------------------------------------------------------------------------
// list / get / set / rm
// ---------------------------------------------------------------------------

func TestList_Text(t *testing.T) {
	dir := paramDir(t, map[string]string{"b": "2\n", "a": "1\n"})

	stdout, _, err := executeCommand("list", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "a = 1\nb = 2\n", stdout)
}

func TestList_JSON(t *testing.T) {
	dir := paramDir(t, map[string]string{"a": "1\n"})

	stdout, _, err := executeCommand("ls", "--dir", dir, "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"name": "a"`)
	assert.Contains(t, stdout, `"value": "1"`)
}

func TestList_MissingDir(t *testing.T) {
	_, _, err := executeCommand("list", "--dir", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestGet_Found(t *testing.T) {
	dir := paramDir(t, map[string]string{"speed": "3.5\n# comment\n"})

	stdout, _, err := executeCommand("get", "speed", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "3.5\n", stdout)
}

func TestGet_NotFound(t *testing.T) {
	_, _, err := executeCommand("get", "ghost", "--dir", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, exitNotFound, exitCode(t, err))
}

func TestSet_CreatesDirAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fresh")

	_, _, err := executeCommand("set", "count", "3", "--dir", dir)
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, "count"))
	require.NoError(t, err)
	assert.Equal(t, "3", string(b))
}

func TestSet_LogsToCommandLogger(t *testing.T) {
	dir := t.TempDir()

	_, stderr, err := executeCommand("set", "count", "3", "--dir", dir, "--log-format", "text")
	require.NoError(t, err)
	assert.Contains(t, stderr, `msg="parameter set"`)
	assert.Contains(t, stderr, "parameter=count")
}

func TestRemove_HiddenParameter(t *testing.T) {
	dir := paramDir(t, map[string]string{".a.swp": "1", "b": "2"})

	stdout, _, err := executeCommand("list", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, ".a.swp = 1\nb = 2\n", stdout)

	_, stderr, err := executeCommand("rm", ".a.swp", "--dir", dir, "--log-format", "text")
	require.NoError(t, err)
	assert.Contains(t, stderr, `msg="parameter removed"`)

	stdout, _, err = executeCommand("list", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "b = 2\n", stdout)
}

func TestSet_InvalidName(t *testing.T) {
	_, _, err := executeCommand("set", "../evil", "x", "--dir", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(t, err))
}

func TestRemove(t *testing.T) {
	dir := paramDir(t, map[string]string{"a": "1", "b": "2"})

	_, _, err := executeCommand("rm", "b", "--dir", dir)
	require.NoError(t, err)

	stdout, _, err := executeCommand("list", "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "a = 1\n", stdout)
}

func TestRemove_NotFound(t *testing.T) {
	_, _, err := executeCommand("rm", "ghost", "--dir", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, exitNotFound, exitCode(t, err))
}

func TestServe_InvalidPortFlag(t *testing.T) {
	_, _, err := executeCommand("serve", "--dir", t.TempDir(), "--port", "0")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(t, err))
}
