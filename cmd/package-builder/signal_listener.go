package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
)

// signalListener cancels the build on an interrupt. Cancelling the
// context kills whatever tool is running.
type signalListener struct {
	sigChannel  chan os.Signal
	cancel      context.CancelFunc
	logger      log.Logger
	interrupted atomic.Bool
}

func newSignalListener(sigChannel chan os.Signal, cancel context.CancelFunc, logger log.Logger) *signalListener {
	return &signalListener{
		sigChannel: sigChannel,
		cancel:     cancel,
		logger:     log.With(logger, "component", "signal_listener"),
	}
}

func (s *signalListener) Execute() error {
	signal.Notify(s.sigChannel, os.Interrupt, syscall.SIGTERM)
	sig, ok := <-s.sigChannel
	if !ok {
		return nil
	}
	level.Info(s.logger).Log(
		"msg", "beginning shutdown via signal",
		"signal_received", sig,
	)
	return errors.Errorf("interrupted by %s", sig)
}

func (s *signalListener) Interrupt(_ error) {
	// Only the first call shuts down.
	if !s.interrupted.CompareAndSwap(false, true) {
		return
	}

	signal.Stop(s.sigChannel)
	s.cancel()
	close(s.sigChannel)
}
