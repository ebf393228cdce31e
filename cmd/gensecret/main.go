// Command gensecret prints a random hex secret for AUTH_SECRET or
// GATEWAY_WEBHOOK_SECRET.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

func main() {
	length := pflag.IntP("length", "n", 32, "secret length in bytes")
	pflag.Parse()

	b := make([]byte, *length)

	_, err := rand.Read(b)
	if err != nil {
		fmt.Printf("error while generating secret: %v", err)
		os.Exit(1)
	}

	fmt.Println(hex.EncodeToString(b))
}
