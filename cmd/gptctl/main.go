package main

import (
	"fmt"
	"os"
)

func main() {
	commandInit()

	if err := rootCmd.Execute(); err != nil {
		if log != nil {
			log.Errorf("%v", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
