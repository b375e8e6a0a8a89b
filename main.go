package main

import (
	"github.com/voxcall/voxcall/cmd"
	"github.com/voxcall/voxcall/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
