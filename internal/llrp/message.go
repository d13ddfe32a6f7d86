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

// Package llrp implements the wire-level pieces of the Low Level Reader
// Protocol used by the Zebra FX9600 reader family: frame and parameter
// codecs, capabilities parsing, ROSpec construction, and tag-report
// decoding.
package llrp

// MessageType is an LLRP message type, carried in the low 10 bits of the
// frame header's first two bytes.
type MessageType uint16

// Message types this client sends or understands.
const (
	MessageGetReaderCapabilities         MessageType = 1
	MessageGetReaderCapabilitiesResponse MessageType = 11
	MessageCloseConnection               MessageType = 14
	MessageAddROSpec                     MessageType = 20
	MessageDeleteROSpec                  MessageType = 21
	MessageStartROSpec                   MessageType = 22
	MessageEnableROSpec                  MessageType = 24
	MessageAddROSpecResponse             MessageType = 30
	MessageDeleteROSpecResponse          MessageType = 31
	MessageStartROSpecResponse           MessageType = 32
	MessageEnableROSpecResponse          MessageType = 34
	MessageROAccessReport                MessageType = 61
	MessageKeepalive                     MessageType = 62
	MessageReaderEventNotification       MessageType = 63
	MessageEnableEventsAndReports        MessageType = 64
	MessageKeepaliveAck                  MessageType = 72
	MessageErrorMessage                  MessageType = 100
)

// String names a message type for logging; unknown types print numerically.
func (t MessageType) String() string {
	switch t {
	case MessageGetReaderCapabilities:
		return "GET_READER_CAPABILITIES"
	case MessageGetReaderCapabilitiesResponse:
		return "GET_READER_CAPABILITIES_RESPONSE"
	case MessageCloseConnection:
		return "CLOSE_CONNECTION"
	case MessageAddROSpec:
		return "ADD_ROSPEC"
	case MessageDeleteROSpec:
		return "DELETE_ROSPEC"
	case MessageStartROSpec:
		return "START_ROSPEC"
	case MessageEnableROSpec:
		return "ENABLE_ROSPEC"
	case MessageAddROSpecResponse:
		return "ADD_ROSPEC_RESPONSE"
	case MessageDeleteROSpecResponse:
		return "DELETE_ROSPEC_RESPONSE"
	case MessageStartROSpecResponse:
		return "START_ROSPEC_RESPONSE"
	case MessageEnableROSpecResponse:
		return "ENABLE_ROSPEC_RESPONSE"
	case MessageROAccessReport:
		return "RO_ACCESS_REPORT"
	case MessageKeepalive:
		return "KEEPALIVE"
	case MessageReaderEventNotification:
		return "READER_EVENT_NOTIFICATION"
	case MessageEnableEventsAndReports:
		return "ENABLE_EVENTS_AND_REPORTS"
	case MessageKeepaliveAck:
		return "KEEPALIVE_ACK"
	case MessageErrorMessage:
		return "ERROR_MESSAGE"
	default:
		return "UNKNOWN"
	}
}

// ParameterType is an LLRP TLV or TV parameter type. For TLV parameters the
// vendor/reserved high bits must be masked off before comparison; TV
// parameter types already live in the low 7 bits of a single type byte.
type ParameterType uint16

// TLV parameter types this client produces or consumes.
const (
	ParamLLRPStatus                    ParameterType = 287
	ParamFieldError                    ParameterType = 288
	ParamParameterError                ParameterType = 289
	ParamRegulatoryCapabilities        ParameterType = 143
	ParamUHFBandCapabilities           ParameterType = 144
	ParamTransmitPowerLevelTableEntry  ParameterType = 145
	ParamFrequencyHopTable             ParameterType = 147
	ParamROSpec                        ParameterType = 177
	ParamROBoundarySpec                ParameterType = 178
	ParamROSpecStartTrigger            ParameterType = 179
	ParamROSpecStopTrigger             ParameterType = 182
	ParamAISpec                        ParameterType = 183
	ParamAISpecStopTrigger             ParameterType = 184
	ParamInventoryParameterSpec        ParameterType = 186
	ParamAntennaConfiguration          ParameterType = 222
	ParamRFTransmitter                 ParameterType = 224
	ParamROReportSpec                  ParameterType = 237
	ParamTagReportData                 ParameterType = 240
	ParamEPCData                       ParameterType = 241
	ParamTagReportContentSelector      ParameterType = 238
	ParamC1G2InventoryCommand          ParameterType = 330
)

// tlvTypeMask isolates the parameter type from the vendor/reserved bits
// that share the two-byte TLV type field.
const tlvTypeMask = 0x03FF

// TVType identifies a TV-encoded parameter, carried in the low 7 bits of
// its single type byte (the MSB marks the byte as TV rather than TLV).
type TVType uint8

// TV parameter types this client produces or consumes, with their fixed
// value lengths.
const (
	TVAntennaID                TVType = 1
	TVPeakRSSI                 TVType = 6
	TVChannelIndex             TVType = 7
	TVFirstSeenTimestampUTC    TVType = 8
	TVLastSeenTimestampUTC     TVType = 9
	TVTagSeenCount             TVType = 10
	TVEPC96                    TVType = 13
	TVROSpecID                 TVType = 14
	TVSpecIndex                TVType = 15
	TVInventoryParameterSpecID TVType = 16
)

// tvValueLengths maps each known TV type to the byte length of its value,
// not counting the type byte itself.
var tvValueLengths = map[TVType]int{
	TVAntennaID:                2,
	TVPeakRSSI:                 1,
	TVChannelIndex:             2,
	TVFirstSeenTimestampUTC:    8,
	TVLastSeenTimestampUTC:     8,
	TVTagSeenCount:             2,
	TVEPC96:                    12,
	TVROSpecID:                 4,
	TVSpecIndex:                2,
	TVInventoryParameterSpecID: 2,
}
