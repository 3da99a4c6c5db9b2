package main

import (
	"github.com/oddseye/oddseye/cmd/oddseye/commands"
)

func main() {
	commands.Execute()
}
