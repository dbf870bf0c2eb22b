// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/invowk/fetchunroll/cmd/fetchunroll"

func main() {
	cmd.Execute()
}
