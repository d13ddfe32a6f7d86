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
	"encoding/binary"
	"net"
	"time"

	"github.com/fx9600/llrpclient/internal/llrp"
	"github.com/fx9600/llrpclient/internal/observer"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// allROSpecs is the ROSpecID that means "every ROSpec on the reader" in a
// DELETE_ROSPEC request, clearing out anything left over from a previous
// session before this client adds its own.
const allROSpecs uint32 = 0

// readChunkSize is the buffer size used for each conn.Read call in the
// receive goroutine.
const readChunkSize = 4096

// enableEventsSettleDelay is how long drive waits after sending
// ENABLE_EVENTS_AND_REPORTS before sending GET_READER_CAPABILITIES, giving
// the reader time to act on the former before the handshake proceeds.
const enableEventsSettleDelay = 100 * time.Millisecond

// conversation drives one TCP connection through the connect handshake and
// into a running inventory, dispatching inbound frames by the session's
// current state.
type conversation struct {
	session *Session
	conn    net.Conn
	ctx     context.Context
	span    trace.Span

	buf           []byte
	nextMsgID     uint32
	expectMsgID   uint32
	antennas      []uint16
	pendingROSpec []byte
}

// newMessageID returns the next message ID in this conversation's
// monotonic per-session counter, which starts at 1 and skips 0 on
// wraparound. c.nextMsgID is left at its zero value by construction, so
// the first call seeds it rather than handing out 0.
func (c *conversation) newMessageID() uint32 {
	if c.nextMsgID == 0 {
		c.nextMsgID = 1
	}
	id := c.nextMsgID
	c.nextMsgID++
	if c.nextMsgID == 0 {
		c.nextMsgID = 1
	}
	return id
}

func (c *conversation) send(msgType llrp.MessageType, payload []byte) (uint32, error) {
	id := c.newMessageID()
	frame := llrp.Frame{Type: msgType, MessageID: id, Payload: payload}
	buf, err := frame.MarshalBinary()
	if err != nil {
		return 0, err
	}
	_, err = c.conn.Write(buf)
	return id, err
}

// drive runs the connect handshake and, once running, the tag-report
// loop, returning when the connection ends for any reason. The reader
// must have events and reports enabled before anything else is asked of
// it, so ENABLE_EVENTS_AND_REPORTS goes out first, with a short settle
// delay before GET_READER_CAPABILITIES follows it.
func (c *conversation) drive(connectedAt time.Time) error {
	if _, err := c.send(llrp.MessageEnableEventsAndReports, nil); err != nil {
		return &llrp.Error{Kind: llrp.ErrKindConnectionClosed, Detail: err.Error()}
	}
	select {
	case <-time.After(enableEventsSettleDelay):
	case <-c.ctx.Done():
		return c.shutdownGracefully()
	}

	c.session.setState(StateAwaitingCapabilities)
	id, err := c.send(llrp.MessageGetReaderCapabilities, []byte{0x00})
	if err != nil {
		return &llrp.Error{Kind: llrp.ErrKindConnectionClosed, Detail: err.Error()}
	}
	c.expectMsgID = id

	dataCh := make(chan []byte, 16)
	var g errgroup.Group
	g.Go(func() error { return c.receive(dataCh) })
	errCh := make(chan error, 1)
	go func() { errCh <- g.Wait() }()

	for {
		select {
		case <-c.ctx.Done():
			return c.shutdownGracefully()
		case err := <-errCh:
			return err
		case chunk := <-dataCh:
			c.buf = append(c.buf, chunk...)
			var frames []*llrp.Frame
			c.buf, err = llrp.Drain(c.buf, func(f *llrp.Frame) { frames = append(frames, f) })
			if err != nil {
				return err
			}
			for _, f := range frames {
				if err := c.handleFrame(f, connectedAt); err != nil {
					return err
				}
			}
		case cfg := <-c.session.reconfigure:
			if c.session.State() == StateRunning {
				if err := c.beginRebuild(cfg); err != nil {
					return err
				}
			}
		}
	}
}

// shutdownGracefully sends CLOSE_CONNECTION and gives the reader
// shutdownGrace to act on it before the caller's deferred conn.Close
// destroys the socket. The write is best-effort: by the time shutdown is
// requested the connection may already be unusable, and that's fine,
// since the socket is coming down regardless.
func (c *conversation) shutdownGracefully() error {
	c.session.setState(StateShuttingDown)
	_, _ = c.send(llrp.MessageCloseConnection, nil)
	time.Sleep(shutdownGrace)
	return nil
}

// receive reads raw bytes off conn and relays them to dataCh, applying a
// read deadline only while the handshake is in flight; once the session
// is running there is no read timeout, since tag traffic can be sparse.
// It returns nil only when the conversation's context is cancelled.
func (c *conversation) receive(dataCh chan<- []byte) error {
	buf := make([]byte, readChunkSize)
	for {
		if c.session.State().Ready() {
			c.conn.SetReadDeadline(time.Time{})
		} else {
			c.conn.SetReadDeadline(time.Now().Add(connectReadTimeout))
		}
		n, err := c.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case dataCh <- chunk:
			case <-c.ctx.Done():
				return nil
			}
		}
		if err != nil {
			select {
			case <-c.ctx.Done():
				return nil
			default:
				return &llrp.Error{Kind: llrp.ErrKindConnectionClosed, Detail: err.Error()}
			}
		}
	}
}

func (c *conversation) handleFrame(f *llrp.Frame, connectedAt time.Time) error {
	switch f.Type {
	case llrp.MessageKeepalive:
		_, err := c.send(llrp.MessageKeepaliveAck, nil)
		return err
	case llrp.MessageReaderEventNotification:
		c.session.logger.Debug("reader event notification received")
		return nil
	case llrp.MessageROAccessReport:
		return c.handleTagReport(f.Payload)
	}

	state := c.session.State()
	switch state {
	case StateAwaitingCapabilities:
		return c.handleCapabilitiesResponse(f)
	case StateAwaitingDeleteAck:
		return c.handleDeleteResponse(f)
	case StateAwaitingAddAck:
		return c.handleAddResponse(f)
	case StateAwaitingEnableAck:
		return c.handleEnableResponse(f)
	case StateAwaitingStartAck:
		return c.handleStartResponse(f, connectedAt)
	default:
		c.session.logger.Debug("unexpected message while running", "type", f.Type.String())
		return nil
	}
}

// handleTagReport implements the invariant that tag reports arriving
// before the ROSpec's START_ROSPEC_RESPONSE is confirmed must be dropped
// silently: the reader can begin reporting as soon as the ROSpec is
// enabled, which happens before this client has confirmed the start.
func (c *conversation) handleTagReport(payload []byte) error {
	if !c.session.State().Ready() {
		return nil
	}
	soleAntenna := 0
	if len(c.antennas) == 1 {
		soleAntenna = int(c.antennas[0])
	}
	observations, err := llrp.ParseTagReport(payload, soleAntenna)
	if err != nil {
		c.session.logger.Warn("malformed tag report dropped", "error", err)
		if c.session.metrics != nil {
			c.session.metrics.RecordError(string(llrp.ErrKindTagRecordMalformed))
		}
		return nil
	}
	for _, obs := range observations {
		if c.session.metrics != nil {
			c.session.metrics.RecordTag()
		}
		c.session.publish(observer.Event{Kind: observer.EventTag, Tag: obs})
	}
	return nil
}

func (c *conversation) handleCapabilitiesResponse(f *llrp.Frame) error {
	caps, err := llrp.ParseCapabilities(f.Payload)
	if err != nil {
		return err
	}
	c.session.mu.Lock()
	c.session.caps = caps
	cfg := c.session.cfg
	c.session.mu.Unlock()

	c.session.publish(observer.Event{Kind: observer.EventConnected})

	return c.beginRebuild(cfg)
}

// beginRebuild computes the antenna list, power index, and hop table for
// cfg against the last known capabilities, then starts (or restarts) the
// ROSpec lifecycle from DELETE_ROSPEC.
func (c *conversation) beginRebuild(cfg Config) error {
	c.session.mu.Lock()
	caps := c.session.caps
	c.session.mu.Unlock()

	antennas := make([]uint16, 0, len(cfg.Antennas))
	for _, a := range cfg.Antennas {
		antennas = append(antennas, uint16(a))
	}
	c.antennas = antennas

	powerIndex := uint16(30)
	var hopTableID uint16 = 1
	if caps != nil {
		powerIndex = uint16(caps.PowerIndexFor(cfg.PowerDBM))
		hopTableID = caps.HopTableIDOr(1)
	}
	c.pendingROSpec = llrp.BuildROSpec(llrp.BuildROSpecParams{
		Antennas:   antennas,
		PowerIndex: powerIndex,
		HopTableID: hopTableID,
	})

	c.session.setState(StateAwaitingDeleteAck)
	id, err := c.send(llrp.MessageDeleteROSpec, encodeROSpecIDField(allROSpecs))
	if err != nil {
		return err
	}
	c.expectMsgID = id
	return nil
}

func (c *conversation) handleDeleteResponse(f *llrp.Frame) error {
	// A reader with no ROSpecs to delete reports a non-success status for
	// DELETE_ROSPEC; that's expected on a fresh connection, so the status
	// here is logged but never fatal.
	if err := llrp.CheckStatusResponse(f.Payload); err != nil {
		c.session.logger.Debug("delete rospec reported non-success status", "error", err)
	}
	c.session.setState(StateAwaitingAddAck)
	id, err := c.send(llrp.MessageAddROSpec, c.pendingROSpec)
	if err != nil {
		return err
	}
	c.expectMsgID = id
	return nil
}

func (c *conversation) handleAddResponse(f *llrp.Frame) error {
	if err := llrp.CheckStatusResponse(f.Payload); err != nil {
		return err
	}
	c.session.setState(StateAwaitingEnableAck)
	id, err := c.send(llrp.MessageEnableROSpec, encodeROSpecIDField(llrp.ROSpecID))
	if err != nil {
		return err
	}
	c.expectMsgID = id
	return nil
}

func (c *conversation) handleEnableResponse(f *llrp.Frame) error {
	if err := llrp.CheckStatusResponse(f.Payload); err != nil {
		return err
	}
	c.session.setState(StateAwaitingStartAck)
	id, err := c.send(llrp.MessageStartROSpec, encodeROSpecIDField(llrp.ROSpecID))
	if err != nil {
		return err
	}
	c.expectMsgID = id
	return nil
}

func (c *conversation) handleStartResponse(f *llrp.Frame, connectedAt time.Time) error {
	if err := llrp.CheckStatusResponse(f.Payload); err != nil {
		return err
	}
	c.session.setState(StateRunning)
	if c.session.metrics != nil {
		c.session.metrics.RecordROSpecStart(time.Since(connectedAt).Seconds())
	}
	c.session.publish(observer.Event{Kind: observer.EventReady})
	return nil
}

func encodeROSpecIDField(id uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, id)
	return buf
}
