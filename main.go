// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// gnsslink - GNSS receiver link tool
//
// A CLI tool for splitting the UBX/NMEA stream of a GNSS receiver into
// frames, sending commands to it and forwarding its traffic.

package main

import (
	"os"

	"github.com/Thermoquad/gnsslink/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
