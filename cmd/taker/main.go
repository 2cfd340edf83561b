package main

import (
	"os"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
