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
	"testing"
	"time"

	"github.com/fx9600/llrpclient/internal/llrp"
	"github.com/fx9600/llrpclient/internal/observer"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

// fakeReader is one endpoint of a net.Pipe standing in for a reader: it
// reads outgoing frames the conversation sends and writes canned
// responses back.
type fakeReader struct {
	net.Conn
}

func newConversationHarness(t *testing.T) (*conversation, *fakeReader) {
	t.Helper()
	clientConn, readerConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close(); readerConn.Close() })

	sess := New(Config{Antennas: []int{1}, PowerDBM: 30}, observer.NewBus(), nil, nil, otel.Tracer("test"))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	c := &conversation{
		session: sess,
		conn:    clientConn,
		ctx:     ctx,
	}
	return c, &fakeReader{Conn: readerConn}
}

// readFrame reads exactly one LLRP frame off the fake reader's end of the
// pipe, the way a real reader would see it.
func (r *fakeReader) readFrame(t *testing.T) *llrp.Frame {
	t.Helper()
	header := make([]byte, llrp.HeaderLength)
	_, err := readFull(r.Conn, header)
	require.NoError(t, err)
	total := int(binary.BigEndian.Uint32(header[2:6]))
	payload := make([]byte, total-llrp.HeaderLength)
	_, err = readFull(r.Conn, payload)
	require.NoError(t, err)
	msgType := llrp.MessageType(uint16(header[0]&0x03)<<8 | uint16(header[1]))
	return &llrp.Frame{Type: msgType, MessageID: binary.BigEndian.Uint32(header[6:10]), Payload: payload}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (r *fakeReader) sendFrame(t *testing.T, f llrp.Frame) {
	t.Helper()
	buf, err := f.MarshalBinary()
	require.NoError(t, err)
	_, err = r.Conn.Write(buf)
	require.NoError(t, err)
}

func successStatusPayload() []byte {
	return llrp.EncodeTLV(nil, llrp.ParamLLRPStatus, append([]byte{0x00, 0x00}, []byte("")...))
}

func TestConversation_TagReportBeforeRunningIsDropped(t *testing.T) {
	t.Parallel()
	c, reader := newConversationHarness(t)
	sub, unsub := c.session.bus.Subscribe()
	defer unsub()

	go func() {
		_ = c.drive(time.Now())
	}()

	// ENABLE_EVENTS_AND_REPORTS is sent first, then (after the settle
	// delay) GET_READER_CAPABILITIES; never respond to either, and instead
	// push a tag report immediately, simulating a reader that still has an
	// old ROSpec running from a previous session.
	reader.readFrame(t) // ENABLE_EVENTS_AND_REPORTS
	reader.readFrame(t) // GET_READER_CAPABILITIES

	tagPayload := llrp.EncodeTLV(nil, llrp.ParamTagReportData,
		append([]byte{0x80 | byte(llrp.TVAntennaID), 0x00, 0x01}))
	reader.sendFrame(t, llrp.Frame{Type: llrp.MessageROAccessReport, MessageID: 99, Payload: tagPayload})

	select {
	case ev := <-sub:
		t.Fatalf("expected no event before running, got %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConversation_FullHandshakeReachesRunning(t *testing.T) {
	t.Parallel()
	c, reader := newConversationHarness(t)
	sub, unsub := c.session.bus.Subscribe()
	defer unsub()

	go func() {
		_ = c.drive(time.Now())
	}()

	enableReq0 := reader.readFrame(t)
	require.Equal(t, llrp.MessageEnableEventsAndReports, enableReq0.Type)

	capsReq := reader.readFrame(t)
	require.Equal(t, llrp.MessageGetReaderCapabilities, capsReq.Type)
	reader.sendFrame(t, llrp.Frame{
		Type:      llrp.MessageGetReaderCapabilitiesResponse,
		MessageID: capsReq.MessageID,
		Payload:   []byte{},
	})

	deleteReq := reader.readFrame(t)
	require.Equal(t, llrp.MessageDeleteROSpec, deleteReq.Type)
	reader.sendFrame(t, llrp.Frame{Type: llrp.MessageDeleteROSpecResponse, MessageID: deleteReq.MessageID, Payload: successStatusPayload()})

	addReq := reader.readFrame(t)
	require.Equal(t, llrp.MessageAddROSpec, addReq.Type)
	reader.sendFrame(t, llrp.Frame{Type: llrp.MessageAddROSpecResponse, MessageID: addReq.MessageID, Payload: successStatusPayload()})

	enableReq := reader.readFrame(t)
	require.Equal(t, llrp.MessageEnableROSpec, enableReq.Type)
	reader.sendFrame(t, llrp.Frame{Type: llrp.MessageEnableROSpecResponse, MessageID: enableReq.MessageID, Payload: successStatusPayload()})

	startReq := reader.readFrame(t)
	require.Equal(t, llrp.MessageStartROSpec, startReq.Type)
	reader.sendFrame(t, llrp.Frame{Type: llrp.MessageStartROSpecResponse, MessageID: startReq.MessageID, Payload: successStatusPayload()})

	deadline := time.After(2 * time.Second)
	for c.session.State() != StateRunning {
		select {
		case <-deadline:
			t.Fatalf("session never reached Running, stuck in %s", c.session.State())
		case <-time.After(10 * time.Millisecond):
		}
	}

	foundReady := false
	for !foundReady {
		select {
		case ev := <-sub:
			if ev.Kind == observer.EventReady {
				foundReady = true
			}
		case <-time.After(time.Second):
			t.Fatal("expected a Ready event on the bus")
		}
	}
}

func TestConversation_KeepaliveIsAcked(t *testing.T) {
	t.Parallel()
	c, reader := newConversationHarness(t)

	go func() {
		_ = c.drive(time.Now())
	}()

	reader.readFrame(t) // ENABLE_EVENTS_AND_REPORTS
	reader.readFrame(t) // GET_READER_CAPABILITIES
	reader.sendFrame(t, llrp.Frame{Type: llrp.MessageKeepalive, MessageID: 7, Payload: nil})

	ack := reader.readFrame(t)
	require.Equal(t, llrp.MessageKeepaliveAck, ack.Type)
}

func TestConversation_NonSuccessStatusAbortsHandshake(t *testing.T) {
	t.Parallel()
	c, reader := newConversationHarness(t)

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.drive(time.Now())
	}()

	reader.readFrame(t) // ENABLE_EVENTS_AND_REPORTS

	capsReq := reader.readFrame(t)
	reader.sendFrame(t, llrp.Frame{Type: llrp.MessageGetReaderCapabilitiesResponse, MessageID: capsReq.MessageID, Payload: []byte{}})

	deleteReq := reader.readFrame(t)
	reader.sendFrame(t, llrp.Frame{Type: llrp.MessageDeleteROSpecResponse, MessageID: deleteReq.MessageID, Payload: successStatusPayload()})

	addReq := reader.readFrame(t)
	failPayload := llrp.EncodeTLV(nil, llrp.ParamLLRPStatus, append([]byte{0x01, 0xFF}, []byte("boom")...))
	reader.sendFrame(t, llrp.Frame{Type: llrp.MessageAddROSpecResponse, MessageID: addReq.MessageID, Payload: failPayload})

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("expected drive to return an error after a non-success status")
	}
}
