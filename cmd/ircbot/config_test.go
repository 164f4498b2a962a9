package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const sampleConfig = `
server: irc.example:6697
tls: true
nick: gobot
channels: ["#go", "#bots"]
caps: [multi-prefix]
encoding: iso-8859-1
flood:
  burst: 3
  period: 1s
reconnect-delay: 30s
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "ircbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "irc.example:6697", config.Server)
	assert.True(t, config.TLS)
	assert.Equal(t, []string{"#go", "#bots"}, config.Channels)
	assert.Equal(t, 3, config.Flood.Burst)
	assert.Equal(t, time.Second, config.Flood.Period)
	assert.Equal(t, 30*time.Second, config.ReconnectDelay)

	codec, err := config.textEncoding()
	require.NoError(t, err)
	assert.Equal(t, charmap.Windows1252, codec, "WHATWG maps iso-8859-1 to windows-1252")
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "ircbot", config.Nick)
	assert.Equal(t, 5, config.Flood.Burst)

	_, err = LoadConfig(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestFlagOverrides(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	var overrides flagOverrides
	flagSet := pflag.NewFlagSet("ircbot", pflag.ContinueOnError)
	overrides.addFlags(flagSet)
	require.NoError(t, flagSet.Parse([]string{"--nick", "other", "-c", "#one", "-c", "#two"}))
	overrides.apply(flagSet, config)

	assert.Equal(t, "other", config.Nick)
	assert.Equal(t, []string{"#one", "#two"}, config.Channels)
	assert.Equal(t, "irc.example:6697", config.Server, "unset flags keep file values")
	assert.True(t, config.TLS)
}

func TestNewConnection(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	irc, err := newConnection(config, nil)
	require.NoError(t, err)
	assert.Equal(t, "irc.example:6697", irc.Server)
	assert.NotNil(t, irc.FloodPreventer)
	assert.NoError(t, irc.Registration.Validate())

	config.Encoding = "no-such-encoding"
	_, err = newConnection(config, nil)
	assert.Error(t, err)
}
