package core

import (
	"fmt"
	"sync"
)

// directory keeps the actors of a system in creation order and indexes
// the named ones.
type directory struct {
	mu     sync.RWMutex
	nextID uint32
	order  []ActorID
	byID   map[ActorID]Actor
	byName map[string]ActorID
}

func newDirectory() *directory {
	return &directory{
		byID:   make(map[ActorID]Actor),
		byName: make(map[string]ActorID),
	}
}

// allocate returns the next unused actor id.
func (d *directory) allocate() ActorID {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return ActorID(d.nextID)
}

// add registers actor, under name when name is not empty.
func (d *directory) add(actor Actor, name string) error {
	if actor == nil {
		return fmt.Errorf("cannot register nil actor")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	id := actor.ID()
	if _, exists := d.byID[id]; exists {
		return fmt.Errorf("actor with ID %d already registered", id)
	}
	if name != "" {
		if _, exists := d.byName[name]; exists {
			return fmt.Errorf("service '%s' already exists", name)
		}
		d.byName[name] = id
	}
	d.byID[id] = actor
	d.order = append(d.order, id)
	return nil
}

// remove drops the actor with id and its name.
func (d *directory) remove(id ActorID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byID[id]; !exists {
		return fmt.Errorf("actor with ID %d not found", id)
	}
	delete(d.byID, id)
	for name, named := range d.byName {
		if named == id {
			delete(d.byName, name)
		}
	}
	for i, other := range d.order {
		if other == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}

func (d *directory) named(name string) (Actor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, exists := d.byName[name]
	if !exists {
		return nil, false
	}
	return d.byID[id], true
}

// actors returns every registered actor, oldest first.
func (d *directory) actors() []Actor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Actor, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id])
	}
	return out
}
