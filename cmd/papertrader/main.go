package main

import (
	"os"

	_ "time/tzdata"

	"github.com/briancarter456546/paper-trading-system/cmd/papertrader/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
