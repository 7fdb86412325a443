package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/fetchurl/test/testutil"
)

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommands(t *testing.T) {
	cmd := newRootCmd()

	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"run", "get", "config", "version"})

	for _, flag := range []string{"config", "verbose", "log-format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestVersionCommand(t *testing.T) {
	output, err := executeRoot(t, "version")
	require.NoError(t, err, "version command should not return an error")
	assert.Contains(t, output, "fetchurl version")
}

func TestHelpCommand(t *testing.T) {
	output, err := executeRoot(t, "help")
	require.NoError(t, err)
	assert.Contains(t, output, "fetchurl")
	assert.Contains(t, output, "Available Commands")
}

func TestGetThroughRoot(t *testing.T) {
	ts := testutil.NewTestServer(t)
	cfgPath := testutil.SetupTestConfig(t, "settings:\n  log_level: error\n")
	outPath := filepath.Join(t.TempDir(), "body")

	output, err := executeRoot(t, "--config", cfgPath, "--log-format", "json",
		"get", ts.Path(testutil.PathHello), "--output", outPath)
	require.NoError(t, err)
	assert.Contains(t, output, "200")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, testutil.HelloBody, string(data))
}

func TestInvalidLogFormat(t *testing.T) {
	cfgPath := testutil.SetupTestConfig(t, "")

	_, err := executeRoot(t, "--config", cfgPath, "--log-format", "xml", "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}
