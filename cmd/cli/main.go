package main

import (
	"github.com/style-engine/cmd/cli/cmd"
)

func main() {
	cmd.Execute()
}
