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

// Package session implements the LLRP session controller: the state
// machine that owns one TCP connection to a reader, carries it from
// connect through a running inventory, and tears it down again.
package session

// State is one state of the session's connection lifecycle.
type State int

// Session states, in the order a successful connect walks through them.
const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingCapabilities
	StateAwaitingDeleteAck
	StateAwaitingAddAck
	StateAwaitingEnableAck
	StateAwaitingStartAck
	StateRunning
	StateShuttingDown
)

// String names a state for logging and for the session_state metric.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingCapabilities:
		return "awaiting_capabilities"
	case StateAwaitingDeleteAck:
		return "awaiting_delete_ack"
	case StateAwaitingAddAck:
		return "awaiting_add_ack"
	case StateAwaitingEnableAck:
		return "awaiting_enable_ack"
	case StateAwaitingStartAck:
		return "awaiting_start_ack"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// Ready reports whether the session has completed the ROSpec start
// handshake and is delivering tag reports.
func (s State) Ready() bool {
	return s == StateRunning
}
