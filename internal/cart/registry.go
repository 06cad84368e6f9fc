package cart

import "sort"

// PlatformAction is a named commerce mutation dispatched by the
// platform_action bridge operation.
type PlatformAction func(params map[string]any) (any, error)

// Registry maps action names to handlers. Handlers are registered once at
// startup; lookups are read-only afterwards so no locking is needed.
type Registry struct {
	actions map[string]PlatformAction
}

func NewRegistry() *Registry {
	return &Registry{actions: map[string]PlatformAction{}}
}

func (r *Registry) Register(name string, fn PlatformAction) {
	r.actions[name] = fn
}

func (r *Registry) Get(name string) (PlatformAction, bool) {
	fn, ok := r.actions[name]
	return fn, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
