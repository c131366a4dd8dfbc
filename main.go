// SPDX-License-Identifier: MPL-2.0

// birb is a source-based package manager: it builds packages from seeds
// into per-package staging trees and merges them into the live filesystem
// as symlink farms.
package main

import cmd "birb-cli/cmd/birb"

func main() {
	cmd.Execute()
}
