// SPDX-License-Identifier: AGPL-3.0-or-later
// llrpclient - LLRP client for the Zebra FX9600 reader family
// Copyright (C) 2023-2026 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package config defines the typed configuration this client loads via
// configulator, using nested structs and struct tags for environment
// variables and flags.
package config

// Reader is the configuration of the RFID reader this client connects to.
type Reader struct {
	Host                string  `name:"host" default:"" description:"hostname or IP address of the LLRP reader"`
	Port                int     `name:"port" default:"5084" description:"TCP port the reader's LLRP service listens on"`
	Antennas            []int   `name:"antennas" default:"1" description:"antenna IDs to inventory"`
	PowerDBM            float64 `name:"power-dbm" default:"30" description:"requested transmit power in dBm"`
	ReconnectIntervalMS int     `name:"reconnect-interval-ms" default:"5000" description:"delay before attempting to reconnect after a dropped connection"`
	EnableReconnect     bool    `name:"enable-reconnect" default:"true" description:"automatically reconnect when the connection to the reader drops"`
}

// Metrics configures the Prometheus metrics HTTP endpoint.
type Metrics struct {
	Enabled bool   `name:"enabled" default:"true" description:"serve Prometheus metrics"`
	Bind    string `name:"bind" default:"0.0.0.0" description:"bind address for the metrics server"`
	Port    int    `name:"port" default:"9090" description:"port for the metrics server"`
}

// Telemetry configures OpenTelemetry tracing. An empty OTLPEndpoint
// disables tracing entirely.
type Telemetry struct {
	OTLPEndpoint string `name:"otlp-endpoint" default:"" description:"OTLP gRPC endpoint to export traces to; empty disables tracing"`
}

// Config stores the application configuration, loaded via configulator
// from environment variables and a config file.
type Config struct {
	LogLevel  LogLevel  `name:"log-level" default:"info" description:"minimum log level to emit"`
	Reader    Reader    `name:"reader"`
	Metrics   Metrics   `name:"metrics"`
	Telemetry Telemetry `name:"telemetry"`
}
