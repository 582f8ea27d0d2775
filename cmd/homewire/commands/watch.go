// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

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
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/homewire/cmd/homewire/cli"
	"github.com/bureau-foundation/homewire/controller"
	"github.com/bureau-foundation/homewire/lib/clock"
	"github.com/bureau-foundation/homewire/lib/config"
	"github.com/bureau-foundation/homewire/lib/metrics"
	"github.com/bureau-foundation/homewire/lib/publish"
	"github.com/bureau-foundation/homewire/lib/recording"
)

type watchParams struct {
	cli.ConnectConfig
	cli.Verbosity
	cli.JSONOutput
	Groups      []string `json:"-" flag:"group,g" repeat:"true" desc:"comma-separated resource ids watched on a session of their own (repeatable)"`
	Record      string   `json:"-" flag:"record" desc:"append every event to this recording file"`
	Compress    string   `json:"-" flag:"compress" desc:"recording compression: none, zstd, or lz4 (default: from the file extension)"`
	RedisURL    string   `json:"-" flag:"redis" desc:"publish events to Redis at this URL (overrides redis_url)"`
	MetricsAddr string   `json:"-" flag:"metrics-addr" desc:"serve Prometheus metrics on this address (overrides metrics_addr)"`
	Count       int      `json:"-" flag:"count,n" desc:"stop after this many events (default: run until interrupted)"`
}

func watchCommand() *cli.Command {
	var params watchParams

	return &cli.Command{
		Name:    "watch",
		Summary: "Stream resource changes",
		Description: `Subscribe to change events for resources and print each change as it
arrives, until interrupted.

Positional ids form one group; every --group adds another. Each group is
watched on its own controller session, so a slow or failing group does
not hold up the others. A group whose polling fails persistently ends
the whole command.

Events can additionally be appended to a recording file (see "homewire
replay"), published to Redis, and counted in Prometheus metrics.`,
		Usage: "homewire watch <id>... [--group <ids>]... [flags]",
		Examples: []cli.Example{
			{
				Description: "Watch two switches",
				Command:     "homewire watch 4 7",
			},
			{
				Description: "Watch heating and lighting on separate sessions, recording to disk",
				Command:     "homewire watch --group 10,11,12 --group 20,21 --record house.hwrec.zst",
			},
			{
				Description: "Feed Redis and expose metrics",
				Command:     "homewire watch 4 7 --redis redis://localhost:6379/0 --metrics-addr :9464",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			plan, err := params.plan(args)
			if err != nil {
				return err
			}
			return runWatch(ctx, plan, logger, os.Stdout)
		},
	}
}

// watchPlan is a validated watch invocation.
type watchPlan struct {
	settings    *config.Settings
	groups      [][]int
	record      string
	compression recording.Compression
	limit       int
	jsonOutput  bool
}

func (p *watchParams) plan(args []string) (watchPlan, error) {
	var groups [][]int
	if len(args) > 0 {
		ids, err := parseIDs(args)
		if err != nil {
			return watchPlan{}, err
		}
		groups = append(groups, ids)
	}
	for _, group := range p.Groups {
		ids, err := parseIDs([]string{group})
		if err != nil {
			return watchPlan{}, err
		}
		groups = append(groups, ids)
	}
	for _, ids := range groups {
		if len(ids) == 0 {
			return watchPlan{}, cli.Validation("empty resource group")
		}
	}
	if len(groups) == 0 {
		return watchPlan{}, cli.Validation("at least one resource id is required\n\nUsage: homewire watch <id>... [--group <ids>]... [flags]")
	}
	if p.Count < 0 {
		return watchPlan{}, cli.Validation("--count must not be negative")
	}

	compression := recording.CompressionForPath(p.Record)
	if p.Compress != "" {
		parsed, err := recording.ParseCompression(p.Compress)
		if err != nil {
			return watchPlan{}, cli.Validation("%w", err)
		}
		compression = parsed
	}

	settings, err := p.Load()
	if err != nil {
		return watchPlan{}, err
	}
	if p.RedisURL != "" {
		settings.RedisURL = p.RedisURL
	}
	if p.MetricsAddr != "" {
		settings.MetricsAddr = p.MetricsAddr
	}
	if err := settings.Validate(); err != nil {
		return watchPlan{}, &cli.ToolError{Category: cli.CategoryValidation, Err: err}
	}

	return watchPlan{
		settings:    settings,
		groups:      groups,
		record:      p.Record,
		compression: compression,
		limit:       p.Count,
		jsonOutput:  p.OutputJSON,
	}, nil
}

// runWatch opens one session per group and streams every group
// concurrently into a shared delivery until ctx is cancelled, the
// event limit is reached, or a stream fails.
func runWatch(ctx context.Context, plan watchPlan, logger *slog.Logger, output io.Writer) (err error) {
	settings := plan.settings

	observer := metrics.New()
	registry := prometheus.NewRegistry()
	if err := observer.Register(registry); err != nil {
		return cli.Internal("registering metrics: %w", err)
	}
	if settings.MetricsAddr != "" {
		stopMetrics, err := serveMetrics(settings.MetricsAddr, registry, logger)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	delivery := &delivery{
		output:   output,
		observer: observer,
		logger:   logger,
		clock:    clock.Real(),
		limit:    plan.limit,
	}
	if plan.jsonOutput {
		delivery.encoder = json.NewEncoder(output)
	}

	if plan.record != "" {
		file, err := os.OpenFile(plan.record, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			return cli.Validation("creating recording: %w", err)
		}
		writer, err := recording.NewWriter(file, recording.WriterConfig{Compression: plan.compression})
		if err != nil {
			file.Close()
			return cli.Internal("%w", err)
		}
		delivery.recorder = writer
		defer func() {
			closeErr := writer.Close()
			if fileErr := file.Close(); closeErr == nil {
				closeErr = fileErr
			}
			if closeErr != nil {
				err = errors.Join(err, cli.Internal("finishing recording %s: %w", plan.record, closeErr))
				return
			}
			logger.Info("recording written", "path", plan.record, "frames", writer.Count(), "compression", plan.compression.String())
		}()
	}

	if settings.RedisURL != "" {
		publisher, err := publish.NewRedisPublisher(ctx, publish.RedisConfig{URL: settings.RedisURL, Logger: logger})
		if err != nil {
			return cli.Transient("%w", err)
		}
		defer publisher.Close()
		delivery.publisher = publisher
	}

	sessions, err := openSessions(ctx, settings, logger, observer, len(plan.groups))
	if err != nil {
		return err
	}
	defer func() {
		for _, session := range sessions {
			cli.Release(ctx, session)
		}
	}()

	watchContext, stopWatching := context.WithCancel(ctx)
	defer stopWatching()
	group, groupContext := errgroup.WithContext(watchContext)

	logger.Info("watching resources", "groups", plan.groups)
	for index, ids := range plan.groups {
		session := sessions[index]
		options := cli.WatchOptions(settings, logger.With("group", index))
		group.Go(func() error {
			for event, err := range session.WatchResources(groupContext, ids, options) {
				if err != nil {
					observer.ObserveWatchError(err)
					return cli.Classify(fmt.Errorf("watching %v: %w", ids, err))
				}
				more, err := delivery.deliver(groupContext, event)
				if err != nil {
					return err
				}
				if !more {
					stopWatching()
					return nil
				}
			}
			return nil
		})
	}

	err = group.Wait()
	logger.Info("watch finished", "events", delivery.count())
	return err
}

// openSessions authenticates count sessions on one client, reading the
// password once. On failure every session opened so far is released.
func openSessions(ctx context.Context, settings *config.Settings, logger *slog.Logger, observer controller.CallObserver, count int) ([]*controller.Session, error) {
	client, err := cli.NewClient(settings, logger, observer)
	if err != nil {
		return nil, err
	}
	password, err := cli.ReadPassword(settings.PasswordFile)
	if err != nil {
		return nil, err
	}
	defer password.Close()

	sessions := make([]*controller.Session, 0, count)
	for range count {
		session, err := cli.Authenticate(ctx, client, settings, password)
		if err != nil {
			for _, opened := range sessions {
				cli.Release(ctx, opened)
			}
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// delivery fans each event out to the metrics, the recording, Redis,
// and the output, in that order. Streams deliver concurrently; the
// mutex keeps each event's fan-out and output line together.
type delivery struct {
	mu sync.Mutex

	output    io.Writer
	encoder   *json.Encoder
	observer  *metrics.Observer
	recorder  *recording.Writer
	publisher *publish.RedisPublisher
	logger    *slog.Logger
	clock     clock.Clock

	limit     int
	delivered int
}

// deliver handles one event. more is false once the event limit is
// reached; events arriving after that are dropped.
func (d *delivery) deliver(ctx context.Context, event controller.ChangeEvent) (more bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.limit > 0 && d.delivered >= d.limit {
		return false, nil
	}
	d.delivered++
	d.observer.ObserveWatchEvent(event)

	if d.recorder != nil {
		if err := d.recorder.Append(event); err != nil {
			return false, cli.Internal("%w", err)
		}
	}
	if d.publisher != nil {
		// Redis is a side channel; an outage must not stop the watch.
		if err := d.publisher.Publish(ctx, event); err != nil && ctx.Err() == nil {
			d.logger.Warn("publishing change failed", "resource", event.ResourceID, "error", err)
		}
	}

	if d.encoder != nil {
		if err := d.encoder.Encode(event); err != nil {
			return false, cli.Internal("writing output: %w", err)
		}
	} else {
		writeEvent(d.output, d.clock.Now(), event)
	}
	return d.limit == 0 || d.delivered < d.limit, nil
}

func (d *delivery) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.delivered
}

// serveMetrics starts an HTTP server exposing gatherer on /metrics.
// The listener is bound before returning so address errors surface
// immediately. The returned function shuts the server down.
func serveMetrics(address string, gatherer prometheus.Gatherer, logger *slog.Logger) (func(), error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, cli.Validation("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(gatherer))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "address", listener.Addr().String())

	return func() {
		shutdownContext, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownContext); err != nil {
			logger.Warn("metrics server shutdown", "error", err)
		}
	}, nil
}
