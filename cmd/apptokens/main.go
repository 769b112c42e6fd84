package main

import (
	"os"

	"github.com/ottlabs/apptokens/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
