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

package session_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/fx9600/llrpclient/internal/observer"
	"github.com/fx9600/llrpclient/internal/session"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSession_StateStartsDisconnected(t *testing.T) {
	t.Parallel()
	s := session.New(session.Config{}, nil, nil, nil, otel.Tracer("test"))
	require.Equal(t, session.StateDisconnected, s.State())
}

func TestSession_ConnectFailsFastWhenHostUnreachable(t *testing.T) {
	t.Parallel()
	bus := observer.NewBus()
	sub, unsub := bus.Subscribe()
	defer unsub()

	// port 1 on loopback never accepts; dial will fail quickly.
	s := session.New(session.Config{
		Host:              "127.0.0.1",
		Port:              1,
		Antennas:          []int{1},
		PowerDBM:          30,
		EnableReconnect:   false,
		ReconnectInterval: 10 * time.Millisecond,
	}, bus, nil, nil, otel.Tracer("test"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.Connect(ctx))

	deadline := time.After(4 * time.Second)
	for {
		select {
		case ev := <-sub:
			if ev.Kind == observer.EventError {
				return
			}
		case <-deadline:
			t.Fatal("expected an error event from a failed dial")
		}
	}
}

func TestSession_ConnectTwiceFromNonDisconnectedFails(t *testing.T) {
	t.Parallel()
	// The dial fails at once; reconnect with a long interval keeps the
	// session in its backoff wait (still Connecting) instead of returning
	// to Disconnected.
	s := session.New(session.Config{Host: "127.0.0.1", Port: 1, EnableReconnect: true, ReconnectInterval: time.Minute}, nil, nil, nil, otel.Tracer("test"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Connect(ctx))
	// The first Connect moves the session out of Disconnected asynchronously;
	// give it a moment before trying to connect again.
	require.Eventually(t, func() bool {
		return s.State() != session.StateDisconnected
	}, time.Second, time.Millisecond)

	require.Error(t, s.Connect(ctx))
}

func TestSession_DisconnectIsIdempotent(t *testing.T) {
	t.Parallel()
	s := session.New(session.Config{Host: "127.0.0.1", Port: 1}, nil, nil, nil, otel.Tracer("test"))
	s.Disconnect()
	s.Disconnect()
}

func TestSession_ReconfigureBeforeConnectDoesNotPanic(t *testing.T) {
	t.Parallel()
	s := session.New(session.Config{}, nil, nil, nil, otel.Tracer("test"))
	s.Reconfigure([]int{1, 2}, 25)
}

// listenerFreePort asks the OS for an unused TCP port by binding to :0 and
// immediately closing.
func listenerFreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestSession_ReconnectsAfterDroppedConnection(t *testing.T) {
	t.Parallel()
	port := listenerFreePort(t)
	listener, err := net.Listen("tcp", "127.0.0.1:"+strconv.Itoa(port))
	require.NoError(t, err)
	defer listener.Close()

	accepted := make(chan net.Conn, 4)
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			accepted <- conn
		}
	}()

	s := session.New(session.Config{
		Host:              "127.0.0.1",
		Port:              port,
		Antennas:          []int{1},
		PowerDBM:          30,
		EnableReconnect:   true,
		ReconnectInterval: 20 * time.Millisecond,
	}, observer.NewBus(), nil, nil, otel.Tracer("test"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Connect(ctx))

	first := <-accepted
	first.Close()

	second := <-accepted
	defer second.Close()
}
