package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args against a fresh command tree.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// cli runs commands against one temporary database.
type cli struct {
	t  *testing.T
	db string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	return &cli{t: t, db: filepath.Join(t.TempDir(), "linkcast.db")}
}

func (c *cli) run(args ...string) (string, string, error) {
	c.t.Helper()
	return execute(c.t, append([]string{"--db", c.db}, args...)...)
}

// must runs a command that has to succeed and returns stdout.
func (c *cli) must(args ...string) string {
	c.t.Helper()
	out, errOut, err := c.run(args...)
	require.NoError(c.t, err, "stderr: %s", errOut)
	return out
}

// json runs a command with --format json and decodes the data payload into v.
func (c *cli) json(v any, args ...string) {
	c.t.Helper()
	out := c.must(append([]string{"--format", "json"}, args...)...)
	decodeData(c.t, out, v)
}

type rawResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp rawResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	require.Equal(t, "ok", resp.Status, "output: %s", out)
	if v != nil {
		require.NoError(t, json.Unmarshal(resp.Data, v))
	}
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "linkcast", cmd.Use)
	assert.Contains(t, cmd.Long, "cascade")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"node", "add"}, {"node", "list"}, {"node", "remove"},
		{"item", "add"}, {"item", "list"}, {"item", "delete"}, {"item", "trash"}, {"item", "restore"},
		{"link", "show"},
		{"propagate"}, {"resolve"}, {"find-unlinked"}, {"action"},
		{"check", "item"}, {"check", "forest"},
		{"version"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "0", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("db"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "--format", "xml", "version")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestMissingConfigFile(t *testing.T) {
	_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.toml"), "version")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFormatFromEnvironment(t *testing.T) {
	t.Setenv("LINKCAST_OUTPUT__FORMAT", "json")

	out, _, err := execute(t, "version")
	require.NoError(t, err)

	var v versionInfo
	decodeData(t, out, &v)
	assert.NotEmpty(t, v.Engine)
	assert.NotEmpty(t, v.Schema)
}

func TestVersionText(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "link schema")
}
