package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"gopkg.in/yaml.v3"
)

// Config is the bot's configuration file.
type Config struct {
	Server   string `yaml:"server"`
	TLS      bool   `yaml:"tls"`
	Insecure bool   `yaml:"insecure"`
	Password string `yaml:"password"`

	Nick     string   `yaml:"nick"`
	UserName string   `yaml:"username"`
	RealName string   `yaml:"realname"`
	Channels []string `yaml:"channels"`
	Caps     []string `yaml:"caps"`

	// Encoding is a WHATWG encoding label, e.g. "iso-8859-1"; empty means UTF-8.
	Encoding string `yaml:"encoding"`

	Flood struct {
		Burst  int           `yaml:"burst"`
		Period time.Duration `yaml:"period"`
	} `yaml:"flood"`

	ReconnectDelay time.Duration `yaml:"reconnect-delay"`
	MetricsAddress string        `yaml:"metrics-address"`
	Debug          bool          `yaml:"debug"`
}

func defaultConfig() *Config {
	config := &Config{
		Server:         "localhost:6667",
		Nick:           "ircbot",
		ReconnectDelay: 10 * time.Second,
	}
	config.Flood.Burst = 5
	config.Flood.Period = 2 * time.Second
	return config
}

// LoadConfig reads a YAML file over the defaults. An empty path returns the
// defaults.
func LoadConfig(path string) (*Config, error) {
	config := defaultConfig()
	if path == "" {
		return config, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return config, nil
}

// flagOverrides holds command line values; only flags that were set
// replace the file's values.
type flagOverrides struct {
	server   string
	nick     string
	channels []string
	tls      bool
	debug    bool
	metrics  string
}

func (fo *flagOverrides) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&fo.server, "server", "s", "", "server address, host:port")
	flagSet.StringVarP(&fo.nick, "nick", "n", "", "nickname")
	flagSet.StringSliceVarP(&fo.channels, "channel", "c", nil, "channel to join (repeatable)")
	flagSet.BoolVar(&fo.tls, "tls", false, "connect with TLS")
	flagSet.BoolVarP(&fo.debug, "debug", "d", false, "log every line sent and received")
	flagSet.StringVar(&fo.metrics, "metrics-address", "", "serve Prometheus metrics on this address")
}

func (fo *flagOverrides) apply(flagSet *pflag.FlagSet, config *Config) {
	if flagSet.Changed("server") {
		config.Server = fo.server
	}
	if flagSet.Changed("nick") {
		config.Nick = fo.nick
	}
	if flagSet.Changed("channel") {
		config.Channels = fo.channels
	}
	if flagSet.Changed("tls") {
		config.TLS = fo.tls
	}
	if flagSet.Changed("debug") {
		config.Debug = fo.debug
	}
	if flagSet.Changed("metrics-address") {
		config.MetricsAddress = fo.metrics
	}
}

func (config *Config) textEncoding() (encoding.Encoding, error) {
	if config.Encoding == "" {
		return nil, nil
	}
	return htmlindex.Get(config.Encoding)
}
