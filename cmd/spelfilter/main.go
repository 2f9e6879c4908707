package main

import (
	"os"

	"github.com/solatis/spelfilter/cmd/spelfilter/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
