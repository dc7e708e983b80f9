// diagnosis-cli is the terminal front-end for the symptom checker. It trains
// the same model the HTTP API serves and talks to it through an interactive
// chat or one-shot subcommands.
package main

import (
	"github.com/symptomcheck/diagnosis-api/logging"
)

func main() {
	// Keep stdout clean for the chat, warnings still reach stderr
	logging.InitQuietLogger()
	Execute()
}
