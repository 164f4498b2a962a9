// ircbot connects to one server, joins channels and answers "!ping". It
// reconnects until interrupted.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goshuirc/eventmgr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/goshuirc/ircclient/ircevent"
	"github.com/goshuirc/ircclient/ircflood"
	"github.com/goshuirc/ircclient/ircstate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var overrides flagOverrides
	flagSet := pflag.NewFlagSet("ircbot", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "f", "", "YAML configuration file")
	overrides.addFlags(flagSet)
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	overrides.apply(flagSet, config)

	logger := log.New(os.Stderr, "ircbot ", log.LstdFlags)
	irc, err := newConnection(config, logger)
	if err != nil {
		return err
	}

	if config.MetricsAddress != "" {
		registry := prometheus.NewRegistry()
		irc.Metrics = ircevent.NewMetrics(registry)
		go func() {
			handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
			if err := http.ListenAndServe(config.MetricsAddress, handler); err != nil {
				logger.Printf("metrics server: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return connectLoop(ctx, irc, config.ReconnectDelay)
}

func newConnection(config *Config, logger *log.Logger) (*ircevent.Connection, error) {
	codec, err := config.textEncoding()
	if err != nil {
		return nil, fmt.Errorf("encoding %q: %w", config.Encoding, err)
	}
	userName := config.UserName
	if userName == "" {
		userName = config.Nick
	}

	irc := &ircevent.Connection{
		Server:      config.Server,
		UseTLS:      config.TLS,
		RequestCaps: config.Caps,
		Registration: &ircevent.UserRegistration{
			Nick:     config.Nick,
			UserName: userName,
			RealName: config.RealName,
			Password: config.Password,
		},
		Encoding: codec,
		Debug:    config.Debug,
		Log:      logger,
	}
	if config.Insecure {
		irc.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if config.Flood.Burst > 0 {
		irc.FloodPreventer = ircflood.NewStandardFloodPreventer(config.Flood.Burst, config.Flood.Period)
	}
	attachHandlers(irc, config.Channels)
	return irc, nil
}

func attachHandlers(irc *ircevent.Connection, channels []string) {
	irc.On(ircevent.EventRegistered, func(name string, info eventmgr.InfoMap) {
		if botMode := irc.ISupport()["BOT"]; botMode != "" {
			irc.Mode(irc.CurrentNick(), "+"+botMode)
		}
		if len(channels) > 0 {
			irc.Join(channels)
		}
	}, 0)

	irc.On(ircevent.EventMessage, func(name string, info eventmgr.InfoMap) {
		text, _ := info["text"].(string)
		source, ok := info["source"].(*ircstate.User)
		if !ok || !strings.HasPrefix(text, "!ping") {
			return
		}
		replyTo := source.Nick()
		if channel, ok := info["target"].(*ircstate.Channel); ok {
			replyTo = channel.Name()
		}
		irc.Privmsgf(replyTo, "%s: pong", source.Nick())
	}, 0)

	irc.On(ircevent.EventProtocolError, func(name string, info eventmgr.InfoMap) {
		irc.Log.Printf("server error: %v", info["error"])
	}, 0)
}

// connectLoop keeps the bot connected until ctx is done.
func connectLoop(ctx context.Context, irc *ircevent.Connection, delay time.Duration) error {
	for {
		if err := irc.Connect(ctx); err != nil {
			irc.Log.Printf("connect to %s: %v", irc.Server, err)
		} else {
			select {
			case <-irc.Done():
				if err := irc.LastError(); err != nil {
					irc.Log.Printf("disconnected: %v", err)
				}
			case <-ctx.Done():
				return irc.Quit(0, "shutting down")
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
	}
}
