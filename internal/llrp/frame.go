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

import "encoding/binary"

// HeaderLength is the size in bytes of an LLRP frame header: version+type,
// total message length, and message ID.
const HeaderLength = 10

// Frame is one decoded LLRP message: a type, a message ID used to match
// requests to responses, and the raw parameter bytes that follow the
// header (total length minus HeaderLength).
type Frame struct {
	Type      MessageType
	MessageID uint32
	Payload   []byte
}

// MarshalBinary encodes f as a complete LLRP frame, header and payload.
func (f Frame) MarshalBinary() ([]byte, error) {
	total := HeaderLength + len(f.Payload)
	buf := make([]byte, total)
	buf[0] = 0x04 | byte((uint16(f.Type)>>8)&0x03)
	buf[1] = byte(uint16(f.Type) & 0xFF)
	binary.BigEndian.PutUint32(buf[2:6], uint32(total))
	binary.BigEndian.PutUint32(buf[6:10], f.MessageID)
	copy(buf[10:], f.Payload)
	return buf, nil
}

// decodeHeader reads the type and declared total length out of the first
// HeaderLength bytes of buf. It does not copy the payload.
func decodeHeader(buf []byte) (msgType MessageType, totalLength int, err error) {
	if len(buf) < HeaderLength {
		return 0, 0, newError(ErrKindFrameTooShort, "buffer shorter than header")
	}
	msgType = MessageType(uint16(buf[0]&0x03)<<8 | uint16(buf[1]))
	totalLength = int(binary.BigEndian.Uint32(buf[2:6]))
	if totalLength < HeaderLength {
		return 0, 0, newErrorf(ErrKindFrameLengthInvalid, "declared total length %d below header size", totalLength)
	}
	return msgType, totalLength, nil
}

// ExtractFrame attempts to pull one complete frame off the front of buf. It
// returns the decoded frame, the number of bytes consumed from buf, and an
// error. A nil frame with zero consumed and a FrameTooShort error means the
// caller should read more bytes and retry; no bytes are discarded in that
// case. Any other error is a FrameLengthInvalid: the reader sent a header
// this client cannot trust, and the caller should treat the connection as
// unusable.
func ExtractFrame(buf []byte) (frame *Frame, consumed int, err error) {
	msgType, totalLength, err := decodeHeader(buf)
	if err != nil {
		if e, ok := err.(*Error); ok && e.Kind == ErrKindFrameTooShort {
			return nil, 0, err
		}
		return nil, 0, err
	}
	if len(buf) < totalLength {
		return nil, 0, newError(ErrKindFrameTooShort, "payload incomplete")
	}
	messageID := binary.BigEndian.Uint32(buf[6:10])
	payload := make([]byte, totalLength-HeaderLength)
	copy(payload, buf[HeaderLength:totalLength])
	return &Frame{Type: msgType, MessageID: messageID, Payload: payload}, totalLength, nil
}

// Drain repeatedly calls ExtractFrame against buf, invoking handle for each
// complete frame found, and returns the unconsumed remainder of buf. It
// never blocks and never discards bytes except by consuming complete
// frames; a short leading header or an incomplete payload simply stops the
// loop and leaves the remaining bytes in the returned slice for the next
// read. A header declaring a length below HeaderLength stops the loop with
// a FrameLengthInvalid error, again returning the unconsumed bytes.
func Drain(buf []byte, handle func(*Frame)) (remainder []byte, err error) {
	for {
		frame, consumed, ferr := ExtractFrame(buf)
		if ferr != nil {
			if e, ok := ferr.(*Error); ok && e.Kind == ErrKindFrameTooShort {
				return buf, nil
			}
			return buf, ferr
		}
		handle(frame)
		buf = buf[consumed:]
		if len(buf) == 0 {
			return buf, nil
		}
	}
}
