package main

import "github.com/meteoswiss/claw-release-tools/cmd"

func main() {
	cmd.Execute()
}
