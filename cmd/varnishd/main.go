/*
 * Copyright 2018 The Trickster Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command varnishd runs the object expiry and LRU engine as a standalone
// daemon: it loads a set of named caches from configuration, connects each
// one to its backend, and then blocks, letting the expiry actor in each
// cache retire and reclaim objects in the background until a shutdown
// signal arrives. It serves no HTTP reverse-proxy frontend of its own.
package main

import (
	"fmt"
	"os"

	"github.com/ewqasd200g/varnish-cache/internal/cache/registration"
	"github.com/ewqasd200g/varnish-cache/internal/config"
	"github.com/ewqasd200g/varnish-cache/internal/util/log"
	"github.com/ewqasd200g/varnish-cache/internal/util/metrics"
)

const applicationVersion = "1.0.0"

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if f.showVersion {
		printVersion()
		return
	}
	if f.showHelp {
		printUsage()
		return
	}

	logger, err := run(f, os.Args[1:])
	if err != nil {
		if logger != nil {
			log.Error(logger, "startup failed", log.Pairs{"detail": err.Error()})
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	awaitShutdown(logger, os.Args[1:])
}

// run loads configuration, stands up logging and metrics, and connects
// every configured cache, returning the logger so callers can report
// further startup failures through it.
func run(f *flags, args []string) (*log.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	applyFlagOverrides(cfg, f)

	logger := log.New(&cfg.Logging, cfg.Main.InstanceID)
	log.Info(logger, "varnishd starting", log.Pairs{"version": applicationVersion, "config": f.configPath})

	metrics.Init(&cfg.Metrics, logger)

	if err := registration.LoadCachesFromConfig(cfg, logger); err != nil {
		return logger, fmt.Errorf("loading caches: %w", err)
	}
	log.Info(logger, "caches connected", log.Pairs{"count": fmt.Sprintf("%d", len(cfg.Caches))})
	return logger, nil
}

// reloadConfig re-parses configuration from the same source the process
// started with, closes every currently-registered cache, and reconnects
// the set named in the fresh config. A reload whose flags or configuration
// fail to parse returns before anything is closed, so the prior caches keep
// running. A reload whose caches fail to connect has already closed the
// prior caches; the caches connected before the failing one stay
// registered, and the rest are not. The caller logs the error.
func reloadConfig(logger *log.Logger, args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg, f)

	registration.CloseAll(logger)
	return registration.LoadCachesFromConfig(cfg, logger)
}

func applyFlagOverrides(cfg *config.Config, f *flags) {
	if f.logLevel != "" {
		cfg.Logging.LogLevel = f.logLevel
	}
	if f.metricsPort != 0 {
		cfg.Metrics.ListenPort = f.metricsPort
	}
}
