package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ui-screenshot-to-prompt/internal/detect"
	"ui-screenshot-to-prompt/internal/prompt"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestPreferences(t *testing.T) {
	s := NewStore(Options{Defaults: Preferences{Size: prompt.SizeExtensive}})

	p := s.Preferences(1, "ann")
	assert.Equal(t, Preferences{Method: detect.MethodBasic, Size: prompt.SizeExtensive}, p)

	s.SetMethod(1, "", detect.MethodAdvanced)
	s.SetSize(1, "", prompt.SizeConcise)
	assert.Equal(t, Preferences{Method: detect.MethodAdvanced, Size: prompt.SizeConcise}, s.Preferences(1, ""))

	// Other users keep the defaults.
	assert.Equal(t, detect.MethodBasic, s.Preferences(2, "bob").Method)

	s.Reset(1)
	assert.Equal(t, Preferences{Method: detect.MethodBasic, Size: prompt.SizeExtensive}, s.Preferences(1, ""))
}

func TestPrune(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewStore(Options{IdleTTL: time.Hour, Now: c.Now})

	s.SetMethod(1, "a", detect.MethodAdvanced)
	c.Advance(40 * time.Minute)
	s.Preferences(2, "b")
	c.Advance(30 * time.Minute)

	assert.Equal(t, 1, s.Prune())
	assert.Equal(t, 1, s.Len())

	// A pruned user starts again from the defaults.
	assert.Equal(t, detect.MethodBasic, s.Preferences(1, "a").Method)
}
