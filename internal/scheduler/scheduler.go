package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Pruner removes expired records and reports how many went away.
type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}

// Scheduler runs the session janitor on a fixed interval until stopped.
type Scheduler struct {
	pruner   Pruner
	interval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(pruner Pruner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Scheduler{
		pruner:   pruner,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
}

// Stop is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Scheduler) loop() {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.runTick()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) runTick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.pruner.Prune(ctx)
	if err != nil {
		log.Error().Err(err).Msg("[scheduler] prune sessions")
		return
	}
	if n > 0 {
		log.Info().Int64("removed", n).Msg("[scheduler] pruned expired sessions")
	}
}
