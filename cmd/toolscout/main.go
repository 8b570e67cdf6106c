package main

import (
	"fmt"
	"os"

	"toolscout/cmd/handlers"
	"toolscout/internal/logger"
)

func main() {
	logger.Init()
	if err := handlers.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
