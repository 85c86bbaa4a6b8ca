package runner

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignalControllerLatches(t *testing.T) {
	s := NewSignalController()
	defer s.Close()

	assert.False(t, s.Interrupted())

	s.ch <- os.Interrupt
	assert.Eventually(t, s.Interrupted, time.Second, 5*time.Millisecond)

	s.trip()
	assert.True(t, s.Interrupted(), "stays interrupted")
}
