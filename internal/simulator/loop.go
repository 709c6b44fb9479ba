package simulator

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Run executes the simulator until ctx is cancelled or Close is called.
// It must be called exactly once.
func (s *Simulator) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrClosed
	}
	defer close(s.done)

	s.log.Debug("Simulator loop started", "sourceRateHz", s.rate, "speed", s.speed)
	for {
		var tickC <-chan time.Time
		if s.ticker != nil {
			tickC = s.ticker.C
		}

		select {
		case <-ctx.Done():
			s.closeErr = s.teardown()
			return ctx.Err()
		case <-s.quit:
			s.closeErr = s.teardown()
			return nil
		case fn := <-s.cmds:
			fn()
		case req := <-s.flushes:
			s.handleFlush(req)
		case <-tickC:
			s.tick()
		}
	}
}

// Close stops the simulator, its timers and every subscriber transport.
func (s *Simulator) Close() error {
	s.quitOnce.Do(func() { close(s.quit) })
	if s.started.CompareAndSwap(false, true) {
		// Run never started; nothing else touches the state
		s.closeErr = s.teardown()
		close(s.done)
		return s.closeErr
	}
	<-s.done
	return s.closeErr
}

// exec runs fn on the owner goroutine and returns its error.
func (s *Simulator) exec(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	select {
	case s.cmds <- func() { errCh <- fn() }:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errCh:
		return err
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Simulator) teardown() error {
	s.cancel()
	s.stop()

	var result *multierror.Error
	for _, id := range s.subscriberIDs() {
		if err := s.unregister(s.subs[id], true); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for _, req := range s.pending.Drain() {
		if err := req.Transport.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.log.Debug("Simulator stopped")
	return result.ErrorOrNil()
}
