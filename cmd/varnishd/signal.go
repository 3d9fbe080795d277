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

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/ewqasd200g/varnish-cache/internal/cache/registration"
	"github.com/ewqasd200g/varnish-cache/internal/util/log"
)

// awaitShutdown blocks until SIGINT or SIGTERM, then closes every
// registered cache and returns. SIGHUP triggers a configuration reload
// instead of a shutdown, mirroring how a long-lived proxy daemon treats
// the two signals differently.
func awaitShutdown(logger *log.Logger, args []string) {
	sigs := make(chan os.Signal, 1)
	hups := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	signal.Notify(hups, syscall.SIGHUP)

	for {
		select {
		case sig := <-sigs:
			log.Warn(logger, "shutdown signal received", log.Pairs{"signal": sig.String()})
			registration.CloseAll(logger)
			return
		case <-hups:
			log.Warn(logger, "configuration reload requested", log.Pairs{"source": "sighup"})
			if err := reloadConfig(logger, args); err != nil {
				log.Error(logger, "configuration reload failed", log.Pairs{"detail": err.Error()})
			}
		}
	}
}
