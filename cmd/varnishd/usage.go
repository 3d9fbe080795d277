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

import "fmt"

const usageText = `
varnishd Usage:

 Using a configuration file:
  varnishd -config /path/to/file.toml [-log-level debug|info|warn|error] [-metrics-port 8082]

 Using the built-in single memory cache default:
  varnishd [-log-level debug|info|warn|error]

------

varnishd serves no HTTP frontend of its own; it runs the object expiry and
LRU engine against every cache named in configuration, for as long as the
process lives. Send SIGINT or SIGTERM for a graceful shutdown, or SIGHUP
to reload configuration in place.

Default log level is info. Set in a config file, or override with -log-level.
`

func printVersion() {
	fmt.Printf("varnishd version %s\n", applicationVersion)
}

func printUsage() {
	printVersion()
	fmt.Print(usageText)
}
