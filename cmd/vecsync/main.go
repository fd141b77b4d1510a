package main

import (
	"github.com/custodia-labs/vecsync/internal/adapters/driving/cli"
)

func main() {
	cli.Execute()
}
