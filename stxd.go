// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// stxdMain is the real main function for stxd.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is
// called.
func stxdMain() error {
	// Load configuration and parse command line.  This also initializes
	// logging and configures it accordingly.
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	stxdLog.Infof("Version %s", version())
	stxdLog.Infof("Active network: %s", activeNetParams.Name)

	s, err := newSigner(cfg)
	if err != nil {
		stxdLog.Errorf("Unable to start signer: %v", err)
		return err
	}

	// Shut down cleanly on interrupt or termination signals.
	quit := make(chan struct{})
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-interrupt
		stxdLog.Infof("Received signal (%s).  Shutting down...", sig)
		close(quit)
	}()

	if err := s.run(quit); err != nil {
		stxdLog.Errorf("Signer terminated: %v", err)
		return err
	}
	stxdLog.Info("Shutdown complete")
	return nil
}

func main() {
	if err := stxdMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
