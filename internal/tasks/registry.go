package tasks

import (
	"fmt"
	"sync"

	"github.com/dmitriz/mtbuild/internal/core/models"
	"github.com/dmitriz/mtbuild/internal/core/ports"
	"github.com/dmitriz/mtbuild/internal/utils/errorutil"
)

// Registry maps primitive task names to their handlers.
type Registry struct {
	handlers map[models.TaskName]ports.TaskHandler
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[models.TaskName]ports.TaskHandler),
	}
}

// Register binds a handler to name. Each name may be registered once.
func (r *Registry) Register(name models.TaskName, handler ports.TaskHandler) error {
	if handler == nil {
		return fmt.Errorf("task '%s': nil handler", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("task '%s' already registered", name)
	}
	r.handlers[name] = handler
	return nil
}

// Resolve looks a handler up by its external name.
func (r *Registry) Resolve(name string) (ports.TaskHandler, error) {
	taskName, err := models.ParseTaskName(name)
	if err != nil {
		return nil, errorutil.UnknownTaskError(name)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, exists := r.handlers[taskName]
	if !exists {
		return nil, errorutil.UnknownTaskError(name)
	}
	return handler, nil
}

// Names returns the registered task names in display order.
func (r *Registry) Names() []models.TaskName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]models.TaskName, 0, len(r.handlers))
	for _, n := range models.AllTasks {
		if _, ok := r.handlers[n]; ok {
			names = append(names, n)
		}
	}
	return names
}
