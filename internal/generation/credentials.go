package generation

import (
	"fmt"
)

// Credential is one provider API key. Name identifies the key in logs
// (for example the environment variable it came from); Secret never is.
type Credential struct {
	Name   string
	Secret string
}

// String keeps the secret out of formatted output.
func (c Credential) String() string {
	return c.Name
}

// CredentialSlot is a credential together with its failure state for one run.
type CredentialSlot struct {
	Credential
	index  int
	failed bool
}

// Failed reports whether the slot has been marked failed.
func (s *CredentialSlot) Failed() bool {
	return s.failed
}

// CredentialPool hands out credentials round-robin for a single orchestrator
// run. It is not safe for concurrent use; each run builds its own pool.
type CredentialPool struct {
	slots    []*CredentialSlot
	next     int
	failures []string
}

// NewCredentialPool builds a pool over creds. It returns ErrNoCredentials when creds is empty.
func NewCredentialPool(creds []Credential) (*CredentialPool, error) {
	if len(creds) == 0 {
		return nil, ErrNoCredentials
	}

	slots := make([]*CredentialSlot, len(creds))
	for i, c := range creds {
		if c.Name == "" {
			c.Name = fmt.Sprintf("credential_%d", i+1)
		}
		slots[i] = &CredentialSlot{Credential: c, index: i}
	}

	return &CredentialPool{slots: slots}, nil
}

// Next returns the next slot that is not marked failed, starting from the
// slot after the last one returned. It returns false when every slot has failed.
func (p *CredentialPool) Next() (*CredentialSlot, bool) {
	for i := 0; i < len(p.slots); i++ {
		slot := p.slots[(p.next+i)%len(p.slots)]
		if slot.failed {
			continue
		}
		p.next = (slot.index + 1) % len(p.slots)
		return slot, true
	}
	return nil, false
}

// MarkFailed marks slot as failed. Marking the same slot twice has no further effect.
func (p *CredentialPool) MarkFailed(slot *CredentialSlot) {
	if slot == nil || slot.failed {
		return
	}
	slot.failed = true
	p.failures = append(p.failures, slot.Name)
}

// Failed returns the names of failed credentials in the order they failed.
func (p *CredentialPool) Failed() []string {
	out := make([]string, len(p.failures))
	copy(out, p.failures)
	return out
}

// Len returns the number of credentials in the pool.
func (p *CredentialPool) Len() int {
	return len(p.slots)
}

// Exhausted reports whether every slot has been marked failed.
func (p *CredentialPool) Exhausted() bool {
	return len(p.failures) == len(p.slots)
}
