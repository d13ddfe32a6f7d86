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

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fx9600/llrpclient/cmd"
	"github.com/fx9600/llrpclient/internal/config"
	"github.com/fx9600/llrpclient/internal/sdk"
	"github.com/USA-RedDragon/configulator"
)

func main() {
	os.Exit(run())
}

func run() int {
	c := configulator.New[config.Config]()
	ctx := configulator.NewContext(context.Background(), c)

	command := cmd.NewCommand(sdk.Version, strings.TrimSpace(sdk.GitCommit))

	if err := command.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
