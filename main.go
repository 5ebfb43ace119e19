package main

import (
	"github.com/opsre/chatgate/cmd"
)

func main() {
	cmd.Execute()
}
