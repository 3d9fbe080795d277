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

import "flag"

// flags holds the values parsed from the command line. A config file,
// when given, is loaded first; any flag explicitly set on the command
// line overrides the value it supplied.
type flags struct {
	configPath  string
	logLevel    string
	metricsPort int
	showVersion bool
	showHelp    bool
}

func parseFlags(args []string) (*flags, error) {
	fs := flag.NewFlagSet("varnishd", flag.ContinueOnError)
	f := &flags{}
	fs.StringVar(&f.configPath, "config", "", "path to a TOML configuration file")
	fs.StringVar(&f.logLevel, "log-level", "", "log level override: debug, info, warn, error")
	fs.IntVar(&f.metricsPort, "metrics-port", 0, "metrics listener port override")
	fs.BoolVar(&f.showVersion, "version", false, "print version information and exit")
	fs.BoolVar(&f.showHelp, "help", false, "print usage information and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}
