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
	"encoding/binary"
	"encoding/hex"
)

// TagObservation is one tag read out of an RO_ACCESS_REPORT, with every
// field defaulted to its zero value when the reader's report omitted it.
type TagObservation struct {
	EPC           string
	AntennaID     int
	RSSI          int
	SeenCount     int
	LastSeenUTC   uint64
	FirstSeenUTC  uint64
}

// ParseTagReport decodes the parameter payload of an RO_ACCESS_REPORT
// message into one TagObservation per TagReportData(240) parameter found.
// soleAntenna, when non-zero, is synthesized onto observations that carry
// no explicit AntennaID parameter — the common case for single-antenna
// configurations, whose readers sometimes omit a field with only one
// possible value.
func ParseTagReport(payload []byte, soleAntenna int) ([]TagObservation, error) {
	params, err := DecodeParameters(payload)
	if err != nil {
		return nil, err
	}

	var observations []TagObservation
	for _, p := range params {
		if p.IsTV || p.TLV != ParamTagReportData {
			continue
		}
		obs := parseTagReportData(p.Value)
		if obs.AntennaID == 0 && soleAntenna != 0 {
			obs.AntennaID = soleAntenna
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

func parseTagReportData(value []byte) TagObservation {
	var obs TagObservation
	for _, p := range DecodeTagReportParameters(value) {
		if p.IsTV {
			applyTV(&obs, p)
			continue
		}
		if p.TLV == ParamEPCData {
			applyEPCData(&obs, p.Value)
		}
	}
	return obs
}

func applyTV(obs *TagObservation, p Parameter) {
	switch p.TV {
	case TVAntennaID:
		obs.AntennaID = int(binary.BigEndian.Uint16(p.Value))
	case TVPeakRSSI:
		obs.RSSI = int(int8(p.Value[0]))
	case TVLastSeenTimestampUTC:
		obs.LastSeenUTC = binary.BigEndian.Uint64(p.Value)
	case TVFirstSeenTimestampUTC:
		obs.FirstSeenUTC = binary.BigEndian.Uint64(p.Value)
	case TVTagSeenCount:
		obs.SeenCount = int(binary.BigEndian.Uint16(p.Value))
	case TVEPC96:
		obs.EPC = hex.EncodeToString(p.Value)
	}
}

// applyEPCData decodes an EPCData(241) parameter: a 2-byte EPCLengthBits
// field followed by the EPC itself. The byte length read off the wire is
// EPCLengthBits/8, floor division, matching this reader family's observed
// framing rather than the ceiling division the base LLRP standard
// specifies for bit lengths that aren't multiples of 8 — FX9600 firmware
// always reports an EPCLengthBits that is itself a multiple of 8, so the
// two divisions agree in practice.
func applyEPCData(obs *TagObservation, value []byte) {
	if len(value) < 2 {
		return
	}
	bitLength := int(binary.BigEndian.Uint16(value[0:2]))
	byteLength := bitLength / 8
	if 2+byteLength > len(value) {
		byteLength = len(value) - 2
	}
	if byteLength < 0 {
		return
	}
	obs.EPC = hex.EncodeToString(value[2 : 2+byteLength])
}
