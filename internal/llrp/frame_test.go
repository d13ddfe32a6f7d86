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

package llrp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	t.Parallel()
	f := Frame{Type: MessageKeepalive, MessageID: 42, Payload: []byte{1, 2, 3, 4}}
	buf, err := f.MarshalBinary()
	require.NoError(t, err)

	decoded, consumed, err := ExtractFrame(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), consumed)
	assert.Equal(t, f.Type, decoded.Type)
	assert.Equal(t, f.MessageID, decoded.MessageID)
	assert.Equal(t, f.Payload, decoded.Payload)
}

func TestExtractFrame_TooShortDoesNotConsume(t *testing.T) {
	t.Parallel()
	f := Frame{Type: MessageKeepaliveAck, MessageID: 1}
	buf, err := f.MarshalBinary()
	require.NoError(t, err)

	_, consumed, err := ExtractFrame(buf[:HeaderLength-1])
	require.Error(t, err)
	assert.Equal(t, 0, consumed)
	var llrpErr *Error
	require.ErrorAs(t, err, &llrpErr)
	assert.Equal(t, ErrKindFrameTooShort, llrpErr.Kind)
}

func TestExtractFrame_InvalidLengthRejected(t *testing.T) {
	t.Parallel()
	buf := make([]byte, HeaderLength)
	buf[0] = 0x04
	buf[1] = byte(MessageKeepalive)
	buf[5] = 3 // total length = 3, below header size

	_, _, err := ExtractFrame(buf)
	require.Error(t, err)
	var llrpErr *Error
	require.ErrorAs(t, err, &llrpErr)
	assert.Equal(t, ErrKindFrameLengthInvalid, llrpErr.Kind)
}

func TestDrain_MultipleFramesInOneBuffer(t *testing.T) {
	t.Parallel()
	f1, _ := Frame{Type: MessageKeepalive, MessageID: 1}.MarshalBinary()
	f2, _ := Frame{Type: MessageKeepaliveAck, MessageID: 2}.MarshalBinary()
	buf := append(append([]byte{}, f1...), f2...)

	var got []MessageType
	remainder, err := Drain(buf, func(f *Frame) { got = append(got, f.Type) })
	require.NoError(t, err)
	assert.Empty(t, remainder)
	assert.Equal(t, []MessageType{MessageKeepalive, MessageKeepaliveAck}, got)
}

func TestDrain_PartialTrailingFrameLeftForNextRead(t *testing.T) {
	t.Parallel()
	f1, _ := Frame{Type: MessageKeepalive, MessageID: 1}.MarshalBinary()
	f2, _ := Frame{Type: MessageKeepaliveAck, MessageID: 2, Payload: []byte{9, 9}}.MarshalBinary()
	buf := append(append([]byte{}, f1...), f2[:len(f2)-1]...)

	var got []MessageType
	remainder, err := Drain(buf, func(f *Frame) { got = append(got, f.Type) })
	require.NoError(t, err)
	assert.Equal(t, []MessageType{MessageKeepalive}, got)
	assert.Equal(t, len(f2)-1, len(remainder))
}

func FuzzFrameRoundTrip(f *testing.F) {
	f.Add(uint16(62), uint32(1), []byte{})
	f.Add(uint16(61), uint32(123456), []byte{0xDE, 0xAD, 0xBE, 0xEF})
	f.Fuzz(func(t *testing.T, msgType uint16, msgID uint32, payload []byte) {
		orig := Frame{Type: MessageType(msgType & 0x3FF), MessageID: msgID, Payload: payload}
		buf, err := orig.MarshalBinary()
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		decoded, consumed, err := ExtractFrame(buf)
		if err != nil {
			t.Fatalf("extract failed on freshly marshaled frame: %v", err)
		}
		if consumed != len(buf) {
			t.Fatalf("consumed %d, want %d", consumed, len(buf))
		}
		if decoded.MessageID != orig.MessageID {
			t.Fatalf("message id mismatch: got %d want %d", decoded.MessageID, orig.MessageID)
		}
	})
}
