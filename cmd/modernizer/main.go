/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Command-line entry point for the AS/400 modernizer.
*/

package main

import (
	"fmt"
	"os"

	"github.com/kleascm/as400-modernizer/cmd/modernizer/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
