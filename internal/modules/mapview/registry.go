package mapview

import (
	"sync"
)

// Registry holds one Layer per user and the shared Scene their widgets live on.
type Registry struct {
	scene *Scene
	deps  LayerDeps
	opts  Options

	mu     sync.Mutex
	layers map[string]*Layer
}

// NewRegistry creates layers on demand with deps; deps.Surface is replaced by scene.
func NewRegistry(scene *Scene, deps LayerDeps, opts Options) *Registry {
	deps.Surface = scene
	return &Registry{scene: scene, deps: deps, opts: opts, layers: make(map[string]*Layer)}
}

// Scene returns the shared surface.
func (r *Registry) Scene() *Scene {
	return r.scene
}

// ContainerKey namespaces a client-chosen container id by user.
func ContainerKey(uid, containerID string) string {
	return uid + "/" + containerID
}

// Layer returns the user's layer, creating it on first use.
func (r *Registry) Layer(uid string) *Layer {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.layers[uid]
	if !ok {
		l = NewLayer(r.deps, r.opts)
		r.layers[uid] = l
	}
	return l
}

// Drop destroys and forgets the user's layer.
func (r *Registry) Drop(uid string) {
	r.mu.Lock()
	l, ok := r.layers[uid]
	delete(r.layers, uid)
	r.mu.Unlock()
	if ok {
		l.Destroy()
	}
}

// Len reports how many users have a layer.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.layers)
}
