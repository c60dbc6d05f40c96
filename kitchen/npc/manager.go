package npc

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"
)

// Manager hands out oracles for computer-controlled seats.
type Manager struct {
	registry *PersonaRegistry
	mu       sync.Mutex
	rng      *rand.Rand
}

// NewManager creates a manager over the given persona registry.
func NewManager(registry *PersonaRegistry, seed int64) *Manager {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Manager{
		registry: registry,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Spawn builds a rule brain for the persona id.
func (m *Manager) Spawn(personaID string) (*RuleBrain, error) {
	persona := m.registry.Get(personaID)
	if persona == nil {
		return nil, fmt.Errorf("unknown persona %q", personaID)
	}
	m.mu.Lock()
	seed := m.rng.Int63()
	m.mu.Unlock()

	log.Printf("[NPC] Spawned %s (persona=%s)", persona.Name, persona.ID)
	return NewRuleBrain(persona, seed), nil
}

// Random spawns a brain for a random registered persona.
func (m *Manager) Random() (*RuleBrain, error) {
	all := m.registry.All()
	if len(all) == 0 {
		return nil, fmt.Errorf("persona registry is empty")
	}
	m.mu.Lock()
	pick := all[m.rng.Intn(len(all))]
	m.mu.Unlock()
	return m.Spawn(pick.ID)
}

type fallbackOracle struct {
	inner Oracle
}

// WithFallback wraps o so that errors, panics and timeouts become PASS decisions.
func WithFallback(o Oracle) Oracle {
	return &fallbackOracle{inner: o}
}

func (f *fallbackOracle) Name() string { return f.inner.Name() }

func (f *fallbackOracle) Decide(ctx context.Context, view View) (d Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[NPC] %s panicked: %v", f.inner.Name(), r)
			d, err = PassDecision(), nil
		}
	}()
	d, err = f.inner.Decide(ctx, view)
	if err != nil {
		log.Printf("[NPC] %s failed, passing: %v", f.inner.Name(), err)
		return PassDecision(), nil
	}
	if d.Action == "" {
		return PassDecision(), nil
	}
	return d, nil
}
