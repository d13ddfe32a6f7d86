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

// ROSpecID is the only ROSpec this client ever creates; there is no reason
// to juggle more than one against a single-purpose inventory session.
const ROSpecID uint32 = 1

// InventoryParameterSpecID matches ROSpecID for the same reason.
const InventoryParameterSpecID uint16 = 1

// BuildROSpecParams is the set of values needed to construct an ROSpec
// that continuously inventories the given antennas at the given transmit
// power.
type BuildROSpecParams struct {
	Antennas   []uint16
	PowerIndex uint16
	HopTableID uint16
}

// BuildROSpec constructs the ROSpec(177) parameter this client sends in
// ADD_ROSPEC: an AISpec with a null stop trigger running every configured
// antenna at the requested power, with a report trigger of N tags or end
// of spec and N = 1, so each tag read is reported. The report content selector and
// report trigger are fixed: this reader family only accepts a report mask
// of 0x0000 and rejects any C1G2InventoryCommand parameter under
// AntennaConfiguration.
func BuildROSpec(p BuildROSpecParams) []byte {
	boundarySpec := buildROBoundarySpec()
	aiSpec := buildAISpec(p.Antennas, p.PowerIndex, p.HopTableID)
	reportSpec := buildROReportSpec()

	var body []byte
	body = append(body, encodeROSpecID()...)
	body = EncodeTLV(body, ParamROBoundarySpec, boundarySpec)
	body = EncodeTLV(body, ParamAISpec, aiSpec)
	body = EncodeTLV(body, ParamROReportSpec, reportSpec)

	var out []byte
	out = EncodeTLV(out, ParamROSpec, body)
	return out
}

// encodeROSpecID returns the fixed ROSpecID, Priority, and CurrentState
// fields that lead an ROSpec parameter's body, ahead of its nested
// parameters: ROSpecID(uint32), Priority(uint8, always 0), CurrentState
// (uint8, always Disabled/0 — the reader assigns this).
func encodeROSpecID() []byte {
	buf := make([]byte, 6)
	binary.BigEndian.PutUint32(buf[0:4], ROSpecID)
	buf[4] = 0 // Priority
	buf[5] = 0 // CurrentState: Disabled
	return buf
}

// buildROBoundarySpec builds ROBoundarySpec(178): a null start trigger
// and a null stop trigger, since the session controller starts the ROSpec
// explicitly via START_ROSPEC rather than letting the reader start or stop
// it on a timer.
func buildROBoundarySpec() []byte {
	startTrigger := []byte{0} // ROSpecStartTriggerType: Null
	stopTrigger := buildNullStopTrigger()

	var body []byte
	body = EncodeTLV(body, ParamROSpecStartTrigger, startTrigger)
	body = EncodeTLV(body, ParamROSpecStopTrigger, stopTrigger)
	return body
}

// buildNullStopTrigger builds a ROSpecStopTrigger/AISpecStopTrigger body
// that never fires on its own: trigger type Null (0) followed by a
// DurationTriggerValue of 0. This reader family always expects a 5-byte
// stop trigger body regardless of trigger type.
func buildNullStopTrigger() []byte {
	buf := make([]byte, 5)
	buf[0] = 0 // stop trigger type: Null
	binary.BigEndian.PutUint32(buf[1:5], 0)
	return buf
}

// buildAISpec builds AISpec(183): the antenna ID list, a null stop
// trigger, and one InventoryParameterSpec carrying the AntennaConfiguration
// for every listed antenna.
func buildAISpec(antennas []uint16, powerIndex uint16, hopTableID uint16) []byte {
	var body []byte

	antennaCount := make([]byte, 2)
	binary.BigEndian.PutUint16(antennaCount, uint16(len(antennas)))
	body = append(body, antennaCount...)
	for _, a := range antennas {
		idBytes := make([]byte, 2)
		binary.BigEndian.PutUint16(idBytes, a)
		body = append(body, idBytes...)
	}

	body = EncodeTLV(body, ParamAISpecStopTrigger, buildNullStopTrigger())
	body = EncodeTLV(body, ParamInventoryParameterSpec, buildInventoryParameterSpec(antennas, powerIndex, hopTableID))
	return body
}

// buildInventoryParameterSpec builds InventoryParameterSpec(186): a fixed
// ID, the protocol ID (1, for EPCGlobalClass1Gen2), and one
// AntennaConfiguration per antenna. It deliberately omits
// C1G2InventoryCommand: this reader family rejects ROSpecs that carry one
// under AntennaConfiguration, inventorying instead with its own defaults.
func buildInventoryParameterSpec(antennas []uint16, powerIndex uint16, hopTableID uint16) []byte {
	header := make([]byte, 3)
	binary.BigEndian.PutUint16(header[0:2], InventoryParameterSpecID)
	header[2] = 1 // ProtocolID: EPCGlobalClass1Gen2

	body := header
	for _, a := range antennas {
		body = EncodeTLV(body, ParamAntennaConfiguration, buildAntennaConfiguration(a, powerIndex, hopTableID))
	}
	return body
}

// buildAntennaConfiguration builds AntennaConfiguration(222) for one
// antenna: its ID and an RFTransmitter nested parameter selecting hop
// table and power index. No C1G2InventoryCommand is nested here.
func buildAntennaConfiguration(antennaID, powerIndex uint16, hopTableID uint16) []byte {
	idBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(idBytes, antennaID)

	var body []byte
	body = append(body, idBytes...)
	body = EncodeTLV(body, ParamRFTransmitter, buildRFTransmitter(hopTableID, powerIndex))
	return body
}

// buildRFTransmitter builds RFTransmitter(224): HopTableID(uint16),
// ChannelIndex(uint16, 0 meaning "let the reader pick"), and
// TransmitPowerIndex(uint16).
func buildRFTransmitter(hopTableID uint16, powerIndex uint16) []byte {
	buf := make([]byte, 6)
	binary.BigEndian.PutUint16(buf[0:2], hopTableID)
	binary.BigEndian.PutUint16(buf[2:4], 0) // ChannelIndex
	binary.BigEndian.PutUint16(buf[4:6], powerIndex)
	return buf
}

// reportTriggerEveryTag is the ROReportTrigger value "upon N tags or end
// of spec"; paired with reportEveryNTags it asks the reader to send a
// report for every tag it observes.
const reportTriggerEveryTag = 1

// reportEveryNTags is the N that accompanies reportTriggerEveryTag. N = 0
// would mean no tag-count trigger at all.
const reportEveryNTags = 1

// buildROReportSpec builds ROReportSpec(237) with a
// TagReportContentSelector whose field mask this reader family requires to
// be exactly 0x0000: any set bit is rejected.
func buildROReportSpec() []byte {
	header := make([]byte, 3)
	header[0] = reportTriggerEveryTag
	binary.BigEndian.PutUint16(header[1:3], reportEveryNTags) // N

	body := header
	body = EncodeTLV(body, ParamTagReportContentSelector, buildTagReportContentSelector())
	return body
}

// buildTagReportContentSelector builds TagReportContentSelector(238) with
// its field mask forced to 0x0000.
func buildTagReportContentSelector() []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, 0x0000)
	return buf
}
