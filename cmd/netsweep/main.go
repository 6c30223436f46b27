package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/netsweep/internal/runner"
)

func main() {
	options := runner.ParseOptions()
	sweepRunner, err := runner.NewRunner(options)
	if err != nil {
		gologger.Fatal().Msgf("Could not create runner: %s\n", err)
	}
	defer sweepRunner.Close()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup close handler
	go func() {
		<-c
		runner.NotifyInterrupt()
		cancel()
	}()

	if err := sweepRunner.Run(ctx); err != nil {
		sweepRunner.Close()
		gologger.Fatal().Msgf("Could not run netsweep: %s\n", err)
	}
}
