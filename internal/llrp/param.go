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

// tvMarker is the bit that distinguishes a TV-encoded parameter (set) from
// a TLV-encoded one (clear) in the first byte of a parameter.
const tvMarker = 0x80

// resyncWindow bounds how far DecodeTagReportParameters will scan forward
// looking for the next plausible parameter start after hitting a malformed
// one, per the TagReportData-only resynchronization policy.
const resyncWindow = 16

// Parameter is one decoded LLRP parameter, TLV or TV. IsTV distinguishes
// the two encodings; TLV holds the TLV type (with vendor bits masked) and
// TV the TV type, and only the field matching IsTV is set.
type Parameter struct {
	IsTV  bool
	TLV   ParameterType
	TV    TVType
	Value []byte
}

// EncodeTLV appends a TLV-encoded parameter (type t, value v) to dst and
// returns the extended slice. Length in the wire format includes the
// 4-byte TLV header itself.
func EncodeTLV(dst []byte, t ParameterType, v []byte) []byte {
	length := 4 + len(v)
	header := make([]byte, 4)
	binary.BigEndian.PutUint16(header[0:2], uint16(t)&tlvTypeMask)
	binary.BigEndian.PutUint16(header[2:4], uint16(length))
	dst = append(dst, header...)
	dst = append(dst, v...)
	return dst
}

// EncodeTV appends a TV-encoded parameter to dst and returns the extended
// slice. v must already be the correct fixed length for t.
func EncodeTV(dst []byte, t TVType, v []byte) []byte {
	dst = append(dst, byte(t)|tvMarker)
	dst = append(dst, v...)
	return dst
}

// DecodeParameters walks buf decoding a flat or nested sequence of TLV and
// TV parameters with no resynchronization: a malformed parameter aborts
// decoding immediately, since only TagReportData's interior tolerates
// corruption.
func DecodeParameters(buf []byte) ([]Parameter, error) {
	var params []Parameter
	for len(buf) > 0 {
		p, n, err := decodeOne(buf)
		if err != nil {
			return params, err
		}
		params = append(params, p)
		buf = buf[n:]
	}
	return params, nil
}

// decodeOne decodes a single parameter (TLV or TV) from the front of buf,
// returning it along with the number of bytes it occupied on the wire.
func decodeOne(buf []byte) (Parameter, int, error) {
	if len(buf) < 1 {
		return Parameter{}, 0, newError(ErrKindParameterMalformed, "empty buffer")
	}
	if buf[0]&tvMarker != 0 {
		tvType := TVType(buf[0] &^ tvMarker)
		valueLen, known := tvValueLengths[tvType]
		if !known {
			return Parameter{}, 0, newErrorf(ErrKindParameterMalformed, "unknown TV type %d", tvType)
		}
		if len(buf) < 1+valueLen {
			return Parameter{}, 0, newErrorf(ErrKindParameterMalformed, "TV type %d truncated", tvType)
		}
		value := make([]byte, valueLen)
		copy(value, buf[1:1+valueLen])
		return Parameter{IsTV: true, TV: tvType, Value: value}, 1 + valueLen, nil
	}

	if len(buf) < 4 {
		return Parameter{}, 0, newError(ErrKindParameterMalformed, "TLV header truncated")
	}
	rawType := binary.BigEndian.Uint16(buf[0:2]) & tlvTypeMask
	length := int(binary.BigEndian.Uint16(buf[2:4]))
	if length < 4 {
		return Parameter{}, 0, newErrorf(ErrKindParameterMalformed, "TLV type %d declared length %d below header size", rawType, length)
	}
	if len(buf) < length {
		return Parameter{}, 0, newErrorf(ErrKindParameterMalformed, "TLV type %d truncated", rawType)
	}
	value := make([]byte, length-4)
	copy(value, buf[4:length])
	return Parameter{IsTV: false, TLV: ParameterType(rawType), Value: value}, length, nil
}

// DecodeTagReportParameters walks buf the way DecodeParameters does, but on
// a malformed parameter it scans forward up to resyncWindow bytes looking
// for a byte with the TV marker bit set and resumes decoding there, rather
// than aborting. This tolerance is scoped to TagReportData's interior: tag
// reports from real readers have been observed to carry vendor parameters
// this client does not know how to size.
func DecodeTagReportParameters(buf []byte) []Parameter {
	var params []Parameter
	for len(buf) > 0 {
		p, n, err := decodeOne(buf)
		if err == nil {
			params = append(params, p)
			buf = buf[n:]
			continue
		}
		skip := resync(buf)
		if skip <= 0 {
			return params
		}
		buf = buf[skip:]
	}
	return params
}

// resync scans buf, starting one byte past the beginning (past the byte
// that just failed to decode), for the next byte with the TV marker bit
// set, within resyncWindow bytes. It returns the number of bytes to skip
// to reach that byte, or 0 if none is found in range.
func resync(buf []byte) int {
	limit := resyncWindow
	if limit > len(buf) {
		limit = len(buf)
	}
	for i := 1; i < limit; i++ {
		if buf[i]&tvMarker != 0 {
			return i
		}
	}
	return 0
}
