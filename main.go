package main

import (
	"os"

	"github.com/smazurov/ouvrt-cameras/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
