package dictionary

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/conduit-lang/dictquery/internal/fault"
)

// Repository is the read-only metadata source consumed by the engine
type Repository interface {
	Table(ctx context.Context, name string) (*TableSchema, error)
	Container(ctx context.Context, id string) (*Container, error)
	Window(ctx context.Context, id string) (*Window, error)
	Reference(ctx context.Context, id string) (*ReferenceDescriptor, error)
	ValidationRule(ctx context.Context, id string) (*ValidationRule, error)
}

// Registry is an in-memory Repository. Registration happens at load time;
// afterwards it is only read.
type Registry struct {
	tables     map[string]*TableSchema
	containers map[string]*Container
	windows    map[string]*Window
	references map[string]*ReferenceDescriptor
	rules      map[string]*ValidationRule
	mu         sync.RWMutex
}

// NewRegistry creates a new empty registry
func NewRegistry() *Registry {
	return &Registry{
		tables:     make(map[string]*TableSchema),
		containers: make(map[string]*Container),
		windows:    make(map[string]*Window),
		references: make(map[string]*ReferenceDescriptor),
		rules:      make(map[string]*ValidationRule),
	}
}

// RegisterTable registers a table schema
func (r *Registry) RegisterTable(t *TableSchema) error {
	if err := validateTable(t); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tables[t.Name]; exists {
		return fmt.Errorf("table %s is already registered", t.Name)
	}
	r.tables[t.Name] = t
	return nil
}

// RegisterContainer registers a container
func (r *Registry) RegisterContainer(c *Container) error {
	if c.ID == "" {
		return fmt.Errorf("container id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.containers[c.ID]; exists {
		return fmt.Errorf("container %s is already registered", c.ID)
	}
	r.containers[c.ID] = c
	return nil
}

// RegisterWindow registers a window
func (r *Registry) RegisterWindow(w *Window) error {
	if w.ID == "" {
		return fmt.Errorf("window id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.windows[w.ID]; exists {
		return fmt.Errorf("window %s is already registered", w.ID)
	}
	r.windows[w.ID] = w
	return nil
}

// RegisterReference registers a reference descriptor
func (r *Registry) RegisterReference(d *ReferenceDescriptor) error {
	if d.ID == "" {
		return fmt.Errorf("reference id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.references[d.ID]; exists {
		return fmt.Errorf("reference %s is already registered", d.ID)
	}
	r.references[d.ID] = d
	return nil
}

// RegisterValidationRule registers a validation rule
func (r *Registry) RegisterValidationRule(v *ValidationRule) error {
	if v.ID == "" {
		return fmt.Errorf("validation rule id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[v.ID]; exists {
		return fmt.Errorf("validation rule %s is already registered", v.ID)
	}
	r.rules[v.ID] = v
	return nil
}

// Table implements Repository
func (r *Registry) Table(ctx context.Context, name string) (*TableSchema, error) {
	if err := ctx.Err(); err != nil {
		return nil, fault.Wrap(fault.Cancelled, "dictionary.Table", name, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, ok := r.tables[name]; ok {
		return t, nil
	}
	return nil, fault.New(fault.NotFound, "dictionary.Table", name, "table not found")
}

// Container implements Repository
func (r *Registry) Container(ctx context.Context, id string) (*Container, error) {
	if err := ctx.Err(); err != nil {
		return nil, fault.Wrap(fault.Cancelled, "dictionary.Container", id, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.containers[id]; ok {
		return c, nil
	}
	return nil, fault.New(fault.NotFound, "dictionary.Container", id, "container not found")
}

// Window implements Repository
func (r *Registry) Window(ctx context.Context, id string) (*Window, error) {
	if err := ctx.Err(); err != nil {
		return nil, fault.Wrap(fault.Cancelled, "dictionary.Window", id, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if w, ok := r.windows[id]; ok {
		return w, nil
	}
	return nil, fault.New(fault.NotFound, "dictionary.Window", id, "window not found")
}

// Reference implements Repository
func (r *Registry) Reference(ctx context.Context, id string) (*ReferenceDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, fault.Wrap(fault.Cancelled, "dictionary.Reference", id, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.references[id]; ok {
		return d, nil
	}
	return nil, fault.New(fault.NotFound, "dictionary.Reference", id, "reference not found")
}

// ValidationRule implements Repository
func (r *Registry) ValidationRule(ctx context.Context, id string) (*ValidationRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, fault.Wrap(fault.Cancelled, "dictionary.ValidationRule", id, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if v, ok := r.rules[id]; ok {
		return v, nil
	}
	return nil, fault.New(fault.NotFound, "dictionary.ValidationRule", id, "validation rule not found")
}

// ContainerIDs returns all container ids in sorted order
func (r *Registry) ContainerIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.containers))
	for id := range r.containers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ReferenceIDs returns all reference ids in sorted order
func (r *Registry) ReferenceIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.references))
	for id := range r.references {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stats summarizes the registry contents
type Stats struct {
	Tables          int
	Columns         int
	Containers      int
	Fields          int
	Windows         int
	References      int
	ValidationRules int
}

// GetStats returns statistics about the registry
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		Tables:          len(r.tables),
		Containers:      len(r.containers),
		Windows:         len(r.windows),
		References:      len(r.references),
		ValidationRules: len(r.rules),
	}
	for _, t := range r.tables {
		stats.Columns += len(t.Columns)
	}
	for _, c := range r.containers {
		stats.Fields += len(c.Fields)
	}
	return stats
}
