package main

import (
	"os"

	"github.com/funvibe/deft/pkg/cli"
)

func main() {
	os.Exit(cli.Run())
}
