package swarmollama

import (
	"sort"
	"sync"
)

// Registry is a named set of agents. It is safe for concurrent use; once frozen it
// rejects registrations and serves lookups only.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
	frozen bool
}

// NewRegistry creates a registry holding agents
func NewRegistry(agents ...*Agent) (*Registry, error) {
	r := &Registry{agents: make(map[string]*Agent, len(agents))}
	for _, a := range agents {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds agent under its name
func (r *Registry) Register(agent *Agent) error {
	if agent == nil {
		return ErrNilAgent
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrRegistryFrozen
	}
	if _, exists := r.agents[agent.name]; exists {
		return &DuplicateAgentError{Name: agent.name}
	}
	r.agents[agent.name] = agent
	return nil
}

// Freeze stops further registrations
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze was called
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Lookup returns the agent registered under name
func (r *Registry) Lookup(name string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.agents[name]
	if !ok {
		return nil, &UnknownAgentError{Name: name}
	}
	return agent, nil
}

// Agents returns all agents sorted by name
func (r *Registry) Agents() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
