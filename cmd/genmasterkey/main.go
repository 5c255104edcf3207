package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/harrylevesque/csms/internal/crypto"
)

func main() {
	keyFile := flag.String("out", "master.key", "File to write the hex master key to")
	force := flag.Bool("force", false, "Overwrite an existing key file")
	flag.Parse()

	if _, err := os.Stat(*keyFile); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: %s already exists. Refusing to overwrite.\n", *keyFile)
		os.Exit(1)
	}
	hexKey := crypto.GenerateMasterKeyHex()
	if err := os.WriteFile(*keyFile, []byte(hexKey+"\n"), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *keyFile, err)
		os.Exit(1)
	}
	fmt.Printf("Master key written to %s\n", *keyFile)
}
