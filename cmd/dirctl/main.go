// Command dirctl is the operator CLI for the driver directory: listing and
// searching users with their license status, and recording license decisions.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
