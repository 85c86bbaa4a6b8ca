package runner

import (
	"os"
	"os/signal"
	"sync"
)

// SignalController latches the first Ctrl+C. Running tasks are not
// cancelled; the runner only stops scheduling new ones.
type SignalController struct {
	ch   chan os.Signal
	stop chan struct{}
	once sync.Once
}

func NewSignalController() *SignalController {
	s := &SignalController{
		ch:   make(chan os.Signal, 1),
		stop: make(chan struct{}),
	}
	signal.Notify(s.ch, os.Interrupt)
	go s.wait()
	return s
}

func (s *SignalController) wait() {
	if _, ok := <-s.ch; ok {
		s.trip()
	}
}

func (s *SignalController) trip() {
	s.once.Do(func() { close(s.stop) })
}

func (s *SignalController) Interrupted() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *SignalController) Close() {
	signal.Stop(s.ch)
	close(s.ch)
}
