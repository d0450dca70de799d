// Command flashgen generates flashcards through a running gateway and prints
// the result as JSON.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
