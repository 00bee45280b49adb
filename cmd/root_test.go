package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigPath(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	t.Setenv("CONFIG_PATH", "")
	cfgFile = ""
	t.Cleanup(func() { cfgFile = "" })

	assert.Empty(t, configPath(), "no flag, env or local file")

	require.NoError(t, os.WriteFile(filepath.Join(dir, defaultConfigFile), []byte("{}"), 0o600))
	assert.Equal(t, defaultConfigFile, configPath())

	t.Setenv("CONFIG_PATH", "/etc/architetti.yaml")
	assert.Equal(t, "/etc/architetti.yaml", configPath())

	cfgFile = "flag.yaml"
	assert.Equal(t, "flag.yaml", configPath())
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), version)
}

func TestSubcommandsRegistered(t *testing.T) {
	for _, name := range []string{"run", "once", "sources", "config", "export"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}
