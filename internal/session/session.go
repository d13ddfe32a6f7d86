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

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/fx9600/llrpclient/internal/llrp"
	"github.com/fx9600/llrpclient/internal/metrics"
	"github.com/fx9600/llrpclient/internal/observer"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// connectReadTimeout bounds how long the session waits for each expected
// response during the connect handshake, before giving up and
// reconnecting. It is cleared once the session reaches Running: a running
// inventory session may go arbitrarily long between tag reports.
const connectReadTimeout = 30 * time.Second

// shutdownGrace is how long the conversation waits after sending
// CLOSE_CONNECTION before the socket is closed, and the longest Disconnect
// waits for the I/O goroutine to exit before returning.
const shutdownGrace = 500 * time.Millisecond

// dialTimeout bounds the initial TCP connect attempt.
const dialTimeout = 10 * time.Second

// Config is the set of values needed to run one inventory session against
// a reader.
type Config struct {
	Host              string
	Port              int
	Antennas          []int
	PowerDBM          float64
	ReconnectInterval time.Duration
	EnableReconnect   bool
}

// Session owns one TCP connection to a reader and carries it through the
// connect-to-running handshake, reading tag reports once running. A
// Session's connection and handshake are owned by its single I/O
// goroutine. Connect, Disconnect, and Reconfigure reach that goroutine
// through its context and the reconfigure channel; the only session fields
// they write themselves are cfg (Reconfigure, behind mu), the state
// (Disconnect marks it ShuttingDown, behind mu), and the cancel and done
// handles (Connect).
type Session struct {
	cfg     Config
	bus     *observer.Bus
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer

	mu    sync.Mutex
	state State
	caps  *llrp.Capabilities

	reconfigure chan Config
	cancel      context.CancelFunc
	done        chan struct{}
}

// New constructs a Session. The session does not connect until Connect is
// called.
func New(cfg Config, bus *observer.Bus, m *metrics.Metrics, logger *slog.Logger, tracer trace.Tracer) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:         cfg,
		bus:         bus,
		metrics:     m,
		logger:      logger,
		tracer:      tracer,
		state:       StateDisconnected,
		reconfigure: make(chan Config, 1),
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.SetState(state.String())
	}
}

// Connect starts the session's I/O goroutine, which dials the reader and
// drives it through the connect handshake. Connect returns once the
// goroutine has started; failures during the handshake are reported as
// Error and Disconnected events on the bus, not as a return value, since
// the handshake runs asynchronously to match the single-goroutine
// ownership model.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return fmt.Errorf("session: cannot connect from state %s", s.state)
	}
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx)
	return nil
}

// Disconnect tears the session down. It cancels the I/O goroutine's
// context and waits up to shutdownGrace for it to exit cleanly before
// returning; Disconnect is idempotent and safe to call more than once.
func (s *Session) Disconnect() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	s.setState(StateShuttingDown)
	cancel()
	if done != nil {
		select {
		case <-done:
		case <-time.After(shutdownGrace):
		}
	}
}

// Reconfigure updates the antennas and transmit power this session
// requests. If the session is running, it triggers a rebuild of the
// ROSpec on the reader; otherwise the new values simply take effect on
// the next connect.
func (s *Session) Reconfigure(antennas []int, powerDBM float64) {
	s.mu.Lock()
	cfg := s.cfg
	cfg.Antennas = antennas
	cfg.PowerDBM = powerDBM
	s.cfg = cfg
	s.mu.Unlock()

	select {
	case s.reconfigure <- cfg:
	default:
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	backoff := s.cfg.ReconnectInterval
	if backoff <= 0 {
		backoff = 5 * time.Second
	}

	for {
		connectedAt := time.Now()
		err := s.runOnce(ctx, connectedAt)
		if err != nil {
			s.logger.Warn("llrp session ended", "error", err)
			s.publishError(err)
		}

		select {
		case <-ctx.Done():
			s.setState(StateDisconnected)
			return
		default:
		}

		if !s.cfg.EnableReconnect {
			s.setState(StateDisconnected)
			s.publish(observer.Event{Kind: observer.EventDisconnected, DisconnectReason: errString(err)})
			return
		}

		if s.metrics != nil {
			s.metrics.RecordReconnect()
		}
		s.publish(observer.Event{Kind: observer.EventDisconnected, DisconnectReason: errString(err)})

		select {
		case <-ctx.Done():
			s.setState(StateDisconnected)
			return
		case <-time.After(backoff):
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// runOnce drives one connection attempt from dial through to the
// connection closing, returning the reason it ended (nil for a clean,
// caller-requested shutdown).
func (s *Session) runOnce(ctx context.Context, connectedAt time.Time) error {
	ctx, span := s.tracer.Start(ctx, "llrp.session")
	defer span.End()

	s.setState(StateConnecting)
	conn, err := (&net.Dialer{Timeout: dialTimeout}).DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		span.SetStatus(codes.Error, "dial failed")
		return &llrp.Error{Kind: llrp.ErrKindConnectFailed, Detail: err.Error()}
	}
	defer conn.Close()

	c := &conversation{
		session: s,
		conn:    conn,
		ctx:     ctx,
		span:    span,
	}
	err = c.drive(connectedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Session) publish(ev observer.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

func (s *Session) publishError(err error) {
	if err == nil {
		return
	}
	kind := "unknown"
	var llrpErr *llrp.Error
	if errors.As(err, &llrpErr) {
		kind = string(llrpErr.Kind)
	}
	if s.metrics != nil {
		s.metrics.RecordError(kind)
	}
	s.publish(observer.Event{Kind: observer.EventError, Err: err})
}
