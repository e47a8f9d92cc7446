package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	assert.Equal(t, "camscout dev\n", runCLI(t, "version"))
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("CAMSCOUT_SCAN_SUBNET_BASE", "10.4.4")

	out := runCLI(t, "config")
	assert.Contains(t, out, "subnet_base: 10.4.4")
	assert.Contains(t, out, "jpeg_quality: 80")
}
