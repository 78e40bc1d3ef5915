// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/pubsub/lib/config"
	"github.com/bureau-foundation/pubsub/lib/cursorstore"
	"github.com/bureau-foundation/pubsub/lib/version"
	"github.com/bureau-foundation/pubsub/pubsub"
	"github.com/bureau-foundation/pubsub/subscribe"
	"github.com/bureau-foundation/pubsub/transport"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// arguments holds the parsed command line.
type arguments struct {
	configPath    string
	channels      []string
	groups        []string
	presence      bool
	cursor        string
	stateFile     string
	maxAge        time.Duration
	metricsListen string
}

func parseArguments(args []string, output io.Writer) (arguments, error) {
	var result arguments
	flagSet := pflag.NewFlagSet("pubsub-listen", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.StringVar(&result.configPath, "config", "", "config file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringArrayVarP(&result.channels, "channel", "c", nil, "channel to subscribe to (repeatable)")
	flagSet.StringArrayVarP(&result.groups, "group", "g", nil, "channel group to subscribe to (repeatable)")
	flagSet.BoolVar(&result.presence, "presence", false, "also receive presence events for every channel and group")
	flagSet.StringVar(&result.cursor, "cursor", "", "resume from TIMETOKEN:REGION instead of the saved position")
	flagSet.StringVar(&result.stateFile, "state-file", "", "where the stream position is saved (overrides state_file)")
	flagSet.DurationVar(&result.maxAge, "max-age", 0, "ignore a saved position older than this (0 keeps any age)")
	flagSet.StringVar(&result.metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address")
	flagSet.Usage = func() {
		fmt.Fprintf(output, "Usage: pubsub-listen [flags]\n\nFlags:\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return arguments{}, err
	}
	if flagSet.NArg() > 0 {
		return arguments{}, fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}
	if len(result.channels) == 0 && len(result.groups) == 0 {
		return arguments{}, errors.New("at least one --channel or --group is required")
	}
	if result.cursor != "" {
		if _, err := subscribe.ParseCursor(result.cursor); err != nil {
			return arguments{}, fmt.Errorf("--cursor: %w", err)
		}
	}
	if result.maxAge < 0 {
		return arguments{}, fmt.Errorf("--max-age must not be negative, got %v", result.maxAge)
	}
	return result, nil
}

// names returns the channel and group lists to subscribe, with the
// presence companions added when requested.
func (a arguments) names() (channels, groups []string) {
	channels = append(channels, a.channels...)
	groups = append(groups, a.groups...)
	if a.presence {
		for _, name := range a.channels {
			channels = append(channels, name+subscribe.PresenceSuffix)
		}
		for _, name := range a.groups {
			groups = append(groups, name+subscribe.PresenceSuffix)
		}
	}
	return channels, groups
}

func run(args []string) error {
	// Handle --version before anything else.
	for _, argument := range args {
		if argument == "--version" {
			fmt.Printf("pubsub-listen %s\n", version.Info())
			return nil
		}
	}

	parsed, err := parseArguments(args, os.Stderr)
	if err != nil {
		return err
	}

	var cfg *config.Config
	if parsed.configPath != "" {
		cfg, err = config.Load(parsed.configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}
	if parsed.stateFile != "" {
		cfg.StateFile = parsed.stateFile
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	if parsed.metricsListen != "" {
		shutdown, err := serveMetrics(parsed.metricsListen, registry, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	return listen(ctx, parsed, cfg, nil, registry, os.Stdout, logger)
}

// newLogger builds the process logger. Format "auto" picks text when
// stderr is a terminal and JSON otherwise.
func newLogger(cfg *config.Config, output *os.File) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: level}

	format := cfg.Log.Format
	if format == "auto" {
		format = "json"
		if term.IsTerminal(int(output.Fd())) {
			format = "text"
		}
	}
	if format == "text" {
		return slog.New(slog.NewTextHandler(output, options)), nil
	}
	return slog.New(slog.NewJSONHandler(output, options)), nil
}

// serveMetrics starts the Prometheus endpoint and returns its shutdown
// function.
func serveMetrics(address string, gatherer prometheus.Gatherer, logger *slog.Logger) (func(), error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "address", listener.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}, nil
}

// listen subscribes, streams until ctx is done, then saves the cursor
// and closes the client. base is nil outside tests.
func listen(ctx context.Context, parsed arguments, cfg *config.Config, base transport.Transport, registerer prometheus.Registerer, stdout io.Writer, logger *slog.Logger) (err error) {
	client, err := pubsub.New(cfg, base, pubsub.WithLogger(logger), pubsub.WithRegisterer(registerer))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing client: %w", closeErr)
		}
	}()

	output := newEmitter(stdout)
	client.AddListener(subscribe.ListenerFuncs{
		Status: output.status,
		Update: output.update,
	})

	cursor, err := startCursor(parsed, cfg.StateFile, time.Now()) //nolint:realclock // state file age is wall-clock
	if err != nil {
		return err
	}
	channels, groups := parsed.names()
	if cursor.IsZero() {
		_, err = client.Subscribe(channels, groups)
	} else {
		logger.Info("resuming", "cursor", cursor.String())
		_, err = client.Restore(channels, groups, cursor)
	}
	if err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("stopping")
	client.Disconnect()

	if cfg.StateFile == "" {
		return output.err()
	}
	final := client.CurrentCursor()
	if final.IsZero() {
		return output.err()
	}
	state := cursorstore.State{
		Cursor:   final,
		Channels: channels,
		Groups:   groups,
		SavedAt:  time.Now(), //nolint:realclock // state file age is wall-clock
	}
	if err := cursorstore.Write(cfg.StateFile, state); err != nil {
		return err
	}
	logger.Info("saved position", "cursor", final.String(), "path", cfg.StateFile)
	return output.err()
}

// startCursor picks the resume position: --cursor wins, then a fresh
// enough state file, then "now".
func startCursor(parsed arguments, stateFile string, now time.Time) (subscribe.Cursor, error) {
	if parsed.cursor != "" {
		return subscribe.ParseCursor(parsed.cursor)
	}
	if stateFile == "" {
		return subscribe.Cursor{}, nil
	}
	state, ok, err := cursorstore.Check(stateFile, parsed.maxAge, now)
	if err != nil || !ok {
		return subscribe.Cursor{}, err
	}
	return state.Cursor, nil
}

// emitter writes one JSON object per line. The first write error is
// kept and later lines are dropped.
type emitter struct {
	mu      sync.Mutex
	encoder *json.Encoder
	failed  error
}

func newEmitter(w io.Writer) *emitter {
	return &emitter{encoder: json.NewEncoder(w)}
}

type statusLine struct {
	Type     string           `json:"type"`
	Category string           `json:"category"`
	Channels []string         `json:"channels,omitempty"`
	Groups   []string         `json:"groups,omitempty"`
	Cursor   subscribe.Cursor `json:"cursor"`
	Error    string           `json:"error,omitempty"`
}

type updateLine struct {
	Type         string                        `json:"type"`
	Kind         string                        `json:"kind"`
	Channel      string                        `json:"channel"`
	Subscription string                        `json:"subscription,omitempty"`
	Publisher    string                        `json:"publisher,omitempty"`
	Timetoken    subscribe.Cursor              `json:"timetoken"`
	CustomType   string                        `json:"custom_type,omitempty"`
	Payload      json.RawMessage               `json:"payload,omitempty"`
	Presence     *subscribe.PresenceEvent      `json:"presence,omitempty"`
	Object       *subscribe.ObjectEvent        `json:"object,omitempty"`
	Action       *subscribe.MessageActionEvent `json:"action,omitempty"`
	File         *subscribe.FileEvent          `json:"file,omitempty"`
	Error        string                        `json:"error,omitempty"`
}

func (e *emitter) status(status subscribe.Status) {
	line := statusLine{
		Type:     "status",
		Category: status.Category.String(),
		Channels: status.Channels,
		Groups:   status.Groups,
		Cursor:   status.Cursor,
	}
	if status.Err != nil {
		line.Error = status.Err.Error()
	}
	e.write(line)
}

func (e *emitter) update(update subscribe.Update) {
	line := updateLine{
		Type:         "update",
		Kind:         update.Kind.String(),
		Channel:      update.Channel,
		Subscription: update.Subscription,
		Publisher:    update.Publisher,
		Timetoken:    update.Published,
		CustomType:   update.CustomType,
		Presence:     update.Presence,
		Object:       update.Object,
		Action:       update.Action,
		File:         update.File,
	}
	if json.Valid(update.Payload) {
		line.Payload = update.Payload
	}
	if update.Err != nil {
		line.Error = update.Err.Error()
	}
	e.write(line)
}

func (e *emitter) write(line any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failed != nil {
		return
	}
	if err := e.encoder.Encode(line); err != nil {
		e.failed = fmt.Errorf("writing output: %w", err)
	}
}

func (e *emitter) err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failed
}
