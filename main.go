package main

import (
	"github.com/SanikaMane4142/engage-classroomm-55/cmd"
	"github.com/SanikaMane4142/engage-classroomm-55/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
