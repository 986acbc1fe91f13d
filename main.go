// Copyright The gittuf Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/gitauth/gitauth/cmd/gitauth"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "unexpected error: %s\n\n", fmt.Sprint(r))
			debug.PrintStack()
			fmt.Fprintln(os.Stderr, "\nPlease file a bug with the stack trace and steps to reproduce this state. Thanks!")

			os.Exit(1) // this is the last possible deferred function to run
		}
	}()

	rootCmd := gitauth.New()
	if err := rootCmd.Execute(); err != nil {
		// Deferred functions are not executed when os.Exit is invoked, but
		// we don't have a panic here, so that's fine.
		os.Exit(1) //nolint:gocritic
	}
}
