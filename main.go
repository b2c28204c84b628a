package main

import (
	"os"

	"awsom/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
