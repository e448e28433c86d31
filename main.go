package main

import (
	"os"

	"github.com/worklab/sessiond/cmd"
	errUtils "github.com/worklab/sessiond/errors"
	log "github.com/worklab/sessiond/pkg/logger"
)

func main() {
	// Use errUtils.OsExit to allow test interception.
	errUtils.OsExit(run())
}

// run executes the root command and returns the process exit code. Each
// fatal bootstrap failure class maps to its own code so operators can tell
// misconfiguration apart from credential-validity problems.
func run() int {
	err := cmd.Execute()
	if err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		exitCode := errUtils.ClassifyExitCode(err)
		log.Debug("exiting", "code", exitCode)
		return exitCode
	}
	return 0
}
