package main

import (
	"os"

	"github.com/ClipFinance/juice-bot-relay/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
