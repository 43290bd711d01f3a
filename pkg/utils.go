package pkg

import (
	"os"

	"github.com/mitchellh/colorstring"
)

// IsCI reports whether we run inside a CI job, where progress bars only add noise.
func IsCI() bool {
	return os.Getenv("CI") == "true" || os.Getenv("JENKINS_URL") != ""
}

func PrintTask(msg string) {
	colorstring.Printf("[blue][bold]==>[default] %s\n", msg)
}

func PrintSubtask(msg string) {
	colorstring.Printf("[green][bold]  ->[reset] %s\n", msg)
}

func PrintError(msg string) {
	colorstring.Printf("[red][bold]  ->[reset] %s\n", msg)
}
