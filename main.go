package main

import (
	"errors"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errNothingTracked) {
			os.Exit(2)
		}

		exitOnError(err)
	}
}
