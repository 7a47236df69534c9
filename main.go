package main

import (
	"fmt"
	"os"

	cmd "github.com/mentoria-ai/mentoria/cmd/mentoria"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
