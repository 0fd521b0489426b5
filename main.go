package main

import (
	"os"

	"GoEstateAI/app/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
