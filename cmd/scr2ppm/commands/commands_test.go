package commands

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bryanchriswhite/scr2ppm/internal/capture"
	"github.com/bryanchriswhite/scr2ppm/internal/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModeCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().BoolP("screen", "s", false, "")
	cmd.Flags().BoolP("window", "w", false, "")
	cmd.Flags().BoolP("area", "a", false, "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestSelectedMode(t *testing.T) {
	mode, err := selectedMode(newModeCmd(t), "area")
	require.NoError(t, err)
	assert.Equal(t, capture.ModeArea, mode)

	mode, err = selectedMode(newModeCmd(t, "-w"), "area")
	require.NoError(t, err)
	assert.Equal(t, capture.ModeWindow, mode)

	mode, err = selectedMode(newModeCmd(t, "--screen"), "window")
	require.NoError(t, err)
	assert.Equal(t, capture.ModeScreen, mode)

	_, err = selectedMode(newModeCmd(t), "everything")
	require.Error(t, err)
}

func TestWriteConfig(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, config.Defaults(), "json"))

	var decoded config.Config
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *config.Defaults(), decoded)

	buf.Reset()
	require.NoError(t, writeConfig(&buf, config.Defaults(), "yaml"))
	assert.Contains(t, buf.String(), "mode: screen")

	require.Error(t, writeConfig(&buf, config.Defaults(), "toml"))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		cfgFile = ""
		formatFlag = "yaml"
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := execute(t, "config", "path", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, path, strings.TrimSpace(out))

	out, err = execute(t, "config", "set", "delay", "2", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "delay = 2")

	out, err = execute(t, "config", "get", "delay", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "2", strings.TrimSpace(out))

	out, err = execute(t, "config", "show", "--format", "json", "--config", path)
	require.NoError(t, err)
	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 2, cfg.Delay)
	assert.Equal(t, "screen", cfg.Mode)
}

func TestConfigSetRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	_, err := execute(t, "config", "set", "server_port", "8080", "--config", path)
	require.Error(t, err)

	_, err = execute(t, "config", "get", "server_port", "--config", path)
	require.Error(t, err)
}
