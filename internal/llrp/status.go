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

// CheckStatusResponse decodes payload as a flat parameter list and, if it
// carries an LLRPStatus parameter reporting anything other than success,
// returns a StatusNonSuccess error. Every *_RESPONSE message this client
// sends for (other than GET_READER_CAPABILITIES_RESPONSE, which
// ParseCapabilities checks itself) has this shape: an LLRPStatus
// optionally followed by parameters this client does not need.
func CheckStatusResponse(payload []byte) error {
	params, err := DecodeParameters(payload)
	if err != nil {
		return err
	}
	for _, p := range params {
		if p.IsTV || p.TLV != ParamLLRPStatus {
			continue
		}
		return checkStatus(p.Value)
	}
	return nil
}
