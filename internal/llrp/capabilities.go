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
	"sort"
)

// PowerTableEntry is one row of a reader's transmit power table: the index
// a ROSpec's RFTransmitter parameter references, and the dBm it produces.
type PowerTableEntry struct {
	Index int
	DBM   float64
}

// HopTable is one frequency-hop table advertised by the reader, identified
// by the ID a ROSpec's RFTransmitter parameter references.
type HopTable struct {
	ID          uint16
	FrequencyHz []uint32
}

// Capabilities holds the pieces of GET_READER_CAPABILITIES_RESPONSE this
// client needs to build a valid ROSpec: the power table (sorted ascending
// by dBm) and the set of hop tables the reader supports.
type Capabilities struct {
	PowerTable []PowerTableEntry
	HopTables  []HopTable
}

// regulatoryCapabilitiesSkip is the byte length of the CountryCode and
// CommunicationsStandard fields that precede the nested parameters inside
// a RegulatoryCapabilities parameter's value (header already stripped by
// decodeOne: there is no reserved field here).
const regulatoryCapabilitiesSkip = 4

// ParseCapabilities decodes the parameter payload of a
// GET_READER_CAPABILITIES_RESPONSE message. If the response carries an
// LLRPStatus parameter reporting anything other than success, it returns a
// StatusNonSuccess error and no capabilities.
func ParseCapabilities(payload []byte) (*Capabilities, error) {
	params, err := DecodeParameters(payload)
	if err != nil {
		return nil, err
	}

	caps := &Capabilities{}

	for _, p := range params {
		if p.IsTV {
			continue
		}
		switch p.TLV {
		case ParamLLRPStatus:
			if err := checkStatus(p.Value); err != nil {
				return nil, err
			}
		case ParamRegulatoryCapabilities:
			if err := parseRegulatoryCapabilities(p.Value, caps); err != nil {
				return nil, err
			}
		}
	}

	sort.Slice(caps.PowerTable, func(i, j int) bool {
		return caps.PowerTable[i].DBM < caps.PowerTable[j].DBM
	})

	return caps, nil
}

func parseRegulatoryCapabilities(value []byte, caps *Capabilities) error {
	if len(value) < regulatoryCapabilitiesSkip {
		return newError(ErrKindParameterMalformed, "RegulatoryCapabilities shorter than fixed fields")
	}
	inner, err := DecodeParameters(value[regulatoryCapabilitiesSkip:])
	if err != nil {
		return err
	}
	for _, p := range inner {
		if p.IsTV || p.TLV != ParamUHFBandCapabilities {
			continue
		}
		if err := parseUHFBandCapabilities(p.Value, caps); err != nil {
			return err
		}
	}
	return nil
}

func parseUHFBandCapabilities(value []byte, caps *Capabilities) error {
	params, err := DecodeParameters(value)
	if err != nil {
		return err
	}
	hopTables := map[uint16][]uint32{}
	var hopOrder []uint16
	for _, p := range params {
		if p.IsTV {
			continue
		}
		switch p.TLV {
		case ParamTransmitPowerLevelTableEntry:
			if len(p.Value) < 4 {
				continue
			}
			index := int(binary.BigEndian.Uint16(p.Value[0:2]))
			raw := int16(binary.BigEndian.Uint16(p.Value[2:4]))
			caps.PowerTable = append(caps.PowerTable, PowerTableEntry{
				Index: index,
				DBM:   float64(raw) / 100.0,
			})
		case ParamFrequencyHopTable:
			if len(p.Value) < 6 {
				continue
			}
			id := binary.BigEndian.Uint16(p.Value[0:2])
			numHops := int(binary.BigEndian.Uint16(p.Value[2:4]))
			offset := 6
			var freqs []uint32
			for i := 0; i < numHops && offset+4 <= len(p.Value); i++ {
				f := binary.BigEndian.Uint32(p.Value[offset : offset+4])
				offset += 4
				if f == 0 {
					continue
				}
				freqs = append(freqs, f)
			}
			if _, seen := hopTables[id]; !seen {
				hopOrder = append(hopOrder, id)
			}
			hopTables[id] = append(hopTables[id], freqs...)
		}
	}
	for _, id := range hopOrder {
		caps.HopTables = append(caps.HopTables, HopTable{ID: id, FrequencyHz: hopTables[id]})
	}
	return nil
}

// PowerIndexFor returns the power table index whose dBm value is closest to
// target. Ties break toward the lower index. If the table is empty it
// falls back to clamp(round(target), 1, 100).
func (c *Capabilities) PowerIndexFor(targetDBM float64) int {
	if len(c.PowerTable) == 0 {
		rounded := int(targetDBM + 0.5)
		if targetDBM < 0 {
			rounded = int(targetDBM - 0.5)
		}
		if rounded < 1 {
			return 1
		}
		if rounded > 100 {
			return 100
		}
		return rounded
	}

	best := c.PowerTable[0]
	bestDiff := diff(best.DBM, targetDBM)
	for _, entry := range c.PowerTable[1:] {
		d := diff(entry.DBM, targetDBM)
		if d < bestDiff || (d == bestDiff && entry.Index < best.Index) {
			best = entry
			bestDiff = d
		}
	}
	return best.Index
}

func diff(a, b float64) float64 {
	if a < b {
		return b - a
	}
	return a - b
}

// HopTableIDOr returns the ID of the first hop table this client knows
// about, or fallback if none were advertised.
func (c *Capabilities) HopTableIDOr(fallback uint16) uint16 {
	if len(c.HopTables) == 0 {
		return fallback
	}
	return c.HopTables[0].ID
}

// llrpStatusSuccess is the LLRPStatus StatusCode value indicating success.
const llrpStatusSuccess = 0

func checkStatus(value []byte) error {
	if len(value) < 2 {
		return newError(ErrKindParameterMalformed, "LLRPStatus shorter than StatusCode field")
	}
	code := binary.BigEndian.Uint16(value[0:2])
	if code != llrpStatusSuccess {
		return newErrorf(ErrKindStatusNonSuccess, "LLRPStatus code %d", code)
	}
	return nil
}
