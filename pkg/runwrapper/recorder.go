package runwrapper

import (
	"context"
	"strings"
	"sync"
)

// Invocation is one recorded call to Recorder.Run.
type Invocation struct {
	Dir  string
	Name string
	Args []string
}

// String renders the invocation as a command line, for assertions.
func (i Invocation) String() string {
	return strings.Join(append([]string{i.Name}, i.Args...), " ")
}

// Recorder is a Runner that records what it is asked to run. If Hook
// is set it is called for every invocation and its error is returned,
// which lets tests fake the side effects of a tool.
type Recorder struct {
	Hook func(inv Invocation) error

	mu          sync.Mutex
	invocations []Invocation
}

func (r *Recorder) Run(_ context.Context, dir string, name string, args ...string) error {
	inv := Invocation{
		Dir:  dir,
		Name: name,
		Args: append([]string{}, args...),
	}

	r.mu.Lock()
	r.invocations = append(r.invocations, inv)
	r.mu.Unlock()

	if r.Hook != nil {
		return r.Hook(inv)
	}
	return nil
}

// Invocations returns a copy of everything run so far.
func (r *Recorder) Invocations() []Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Invocation, len(r.invocations))
	copy(out, r.invocations)
	return out
}

// Commands returns the recorded invocations rendered with String.
func (r *Recorder) Commands() []string {
	var out []string
	for _, inv := range r.Invocations() {
		out = append(out, inv.String())
	}
	return out
}
