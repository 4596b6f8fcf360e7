package main

import (
	"fmt"
	"os"

	"github.com/rezonia/facture-ocr/cmd/facture-ocr/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
