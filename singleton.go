/*
 *
 * Copyright 2020-present Arpabet, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package beans

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

/**
@author Alex Shvid
*/

/**
	One-shot closure producing the early reference of a bean under construction.
 */
type ObjectFactory func() (interface{}, error)

type singletonState int

const (
	stateAbsent singletonState = iota
	stateCreating
	stateFactory
	stateEarly
	stateFinished
)

var stateNames = []string{"absent", "creating", "factory", "early", "finished"}

func (s singletonState) String() string {
	return stateNames[s]
}

/**
	Lifecycle slot of one singleton name.
	The state tag makes factory, early and finished mutually exclusive.
 */
type singleton struct {

	/**
		Held for the whole construction, serializes builders of the same name
	 */
	build sync.Mutex

	/**
		Guards every field below
	 */
	mu      sync.Mutex
	state   singletonState
	object  interface{}
	factory ObjectFactory

	/**
		Resolution chain that is building the slot, detects re-entrancy
	 */
	owner *resolution
}

func (s *singleton) reset() {
	s.state = stateAbsent
	s.object = nil
	s.factory = nil
	s.owner = nil
}

type disposer struct {
	name    string
	destroy func() error
}

/**
	SingletonRegistry keeps singleton instances and their creation states.

	Lookups of different names never contend on the construction of each other,
	only the slot map itself is guarded by the registry-wide lock.
 */
type SingletonRegistry struct {
	mu    sync.RWMutex
	slots map[string]*singleton

	/**
		Finished names in creation order
	 */
	order []string

	disposers []disposer
}

func NewSingletonRegistry() *SingletonRegistry {
	return &SingletonRegistry{
		slots: make(map[string]*singleton),
	}
}

func (t *SingletonRegistry) slot(name string, create bool) *singleton {
	t.mu.RLock()
	s, ok := t.slots[name]
	t.mu.RUnlock()
	if ok || !create {
		return s
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok = t.slots[name]; !ok {
		s = &singleton{}
		t.slots[name] = s
	}
	return s
}

/**
	Returns the finished object, or the early reference when allowEarly is set
	and the name is under construction. A pending factory is invoked at most once
	and its result promoted to the early state.
 */
func (t *SingletonRegistry) get(name string, allowEarly bool) (interface{}, bool, error) {
	s := t.slot(name, false)
	if s == nil {
		return nil, false, nil
	}
	s.mu.Lock()
	switch s.state {
	case stateFinished:
		obj := s.object
		s.mu.Unlock()
		return obj, true, nil
	case stateEarly:
		if allowEarly {
			obj := s.object
			s.mu.Unlock()
			return obj, true, nil
		}
	case stateFactory:
		if allowEarly {
			factory := s.factory
			s.factory = nil
			s.state = stateCreating
			s.mu.Unlock()

			// processors behind the factory may query this slot again
			obj, err := factory()
			if err != nil {
				return nil, false, err
			}

			s.mu.Lock()
			defer s.mu.Unlock()
			if s.state != stateCreating {
				return nil, false, nil
			}
			s.state = stateEarly
			s.object = obj
			return obj, true, nil
		}
	}
	s.mu.Unlock()
	return nil, false, nil
}

/**
	Returns the finished object or builds it with create.
	Only one create runs per name; concurrent callers wait for it.
	A failed build leaves the name absent, so a later call starts from scratch.
 */
func (t *SingletonRegistry) getOrCreate(name string, owner *resolution, create func() (interface{}, error)) (interface{}, error) {
	s := t.slot(name, true)

	s.mu.Lock()
	if s.state == stateFinished {
		obj := s.object
		s.mu.Unlock()
		return obj, nil
	}
	if s.state != stateAbsent && s.owner == owner {
		s.mu.Unlock()
		return nil, newBeanError(ErrCurrentlyInCreation, name, errors.New("requested bean is currently in creation, is there an unresolvable circular reference?"))
	}
	s.mu.Unlock()

	s.build.Lock()
	defer s.build.Unlock()

	s.mu.Lock()
	if s.state == stateFinished {
		obj := s.object
		s.mu.Unlock()
		return obj, nil
	}
	s.reset()
	s.state = stateCreating
	s.owner = owner
	s.mu.Unlock()

	obj, err := create()

	s.mu.Lock()
	if err != nil {
		s.reset()
		s.mu.Unlock()
		return nil, err
	}
	s.reset()
	s.state = stateFinished
	s.object = obj
	s.mu.Unlock()

	t.mu.Lock()
	t.order = append(t.order, name)
	t.mu.Unlock()
	return obj, nil
}

/**
	Stores the early reference factory, no-op unless the name is being created.
 */
func (t *SingletonRegistry) addFactory(name string, factory ObjectFactory) {
	s := t.slot(name, false)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateCreating {
		s.state = stateFactory
		s.factory = factory
	}
}

/**
	Drops a pending factory and reports the early reference if one was handed out.
 */
func (t *SingletonRegistry) sealEarly(name string) (interface{}, bool) {
	s := t.slot(name, false)
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateFactory:
		s.state = stateCreating
		s.factory = nil
	case stateEarly:
		return s.object, true
	}
	return nil, false
}

func (t *SingletonRegistry) inCreation(name string) bool {
	s := t.slot(name, false)
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != stateAbsent && s.state != stateFinished
}

/**
	Reports a name that is finished or under construction.
 */
func (t *SingletonRegistry) settled(name string) bool {
	s := t.slot(name, false)
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != stateAbsent
}

/**
	Registers an externally built object as a finished singleton.
 */
func (t *SingletonRegistry) RegisterSingleton(name string, obj interface{}) error {
	if name == "" || obj == nil {
		return newBeanError(ErrInvalidDefinition, name, errors.New("singleton name and object are required"))
	}
	s := t.slot(name, true)
	s.mu.Lock()
	if s.state != stateAbsent {
		state := s.state
		s.mu.Unlock()
		return newBeanError(ErrDuplicateBean, name, errors.Errorf("singleton is already %v", state))
	}
	s.state = stateFinished
	s.object = obj
	s.mu.Unlock()

	t.mu.Lock()
	t.order = append(t.order, name)
	t.mu.Unlock()
	return nil
}

/**
	Finished singleton by name, early references are never returned.
 */
func (t *SingletonRegistry) Singleton(name string) (interface{}, bool) {
	obj, ok, _ := t.get(name, false)
	return obj, ok
}

func (t *SingletonRegistry) ContainsSingleton(name string) bool {
	_, ok := t.Singleton(name)
	return ok
}

/**
	Finished singleton names in creation order
 */
func (t *SingletonRegistry) SingletonNames() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

func (t *SingletonRegistry) SingletonCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

func (t *SingletonRegistry) registerDisposable(name string, destroy func() error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disposers = append(t.disposers, disposer{name: name, destroy: destroy})
}

/**
	Destroys one singleton and forgets it, a later lookup creates a new instance.
 */
func (t *SingletonRegistry) DestroySingleton(name string) error {
	t.mu.Lock()
	var fn func() error
	for i, d := range t.disposers {
		if d.name == name {
			fn = d.destroy
			t.disposers = append(t.disposers[:i:i], t.disposers[i+1:]...)
			break
		}
	}
	t.order = removeName(t.order, name)
	s := t.slots[name]
	t.mu.Unlock()

	if s != nil {
		s.mu.Lock()
		if s.state == stateFinished {
			s.reset()
		}
		s.mu.Unlock()
	}
	if fn != nil {
		return fn()
	}
	return nil
}

/**
	Destroys all singletons in reverse creation order and aggregates the failures.
 */
func (t *SingletonRegistry) DestroySingletons() error {
	t.mu.Lock()
	list := t.disposers
	t.disposers = nil
	t.order = nil
	slots := t.slots
	t.slots = make(map[string]*singleton)
	t.mu.Unlock()

	var err error
	for i := len(list) - 1; i >= 0; i-- {
		if e := list[i].destroy(); e != nil {
			err = multierr.Append(err, errors.Wrapf(e, "destroy bean '%s'", list[i].name))
		}
	}
	for _, s := range slots {
		s.mu.Lock()
		if s.state == stateFinished {
			s.reset()
		}
		s.mu.Unlock()
	}
	return err
}

func removeName(list []string, name string) []string {
	for i, n := range list {
		if n == name {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
