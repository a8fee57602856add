package main

import (
	"os"

	"github.com/Armin-kho/currency-rate-bot/cmd/bot/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
