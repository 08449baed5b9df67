package main

import (
	"github.com/zkpodai/attested-audio/cmd/attest/cmd"
)

func main() {
	cmd.Execute()
}
