package main

import (
	"fmt"
	"os"

	"github.com/zurustar/tinyscript/pkg/app"
)

func main() {
	application := app.New()
	if err := application.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
