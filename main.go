package main

import (
	"os"

	"github.com/leadsync/leadsync/internal/cli"
)

func main() {
	os.Exit(cli.ExecuteWithErrorCode(os.Args[1:]))
}
