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
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

type registry struct {
	sync.RWMutex
	definitions map[string]*BeanDefinition
	/**
		Registration order, used by listing and pre-instantiation
	 */
	names         []string
	allowOverride bool
}

func newRegistry() *registry {
	return &registry{
		definitions: make(map[string]*BeanDefinition),
	}
}

func (t *registry) register(name string, def *BeanDefinition) error {
	if def == nil {
		return newBeanError(ErrInvalidDefinition, name, errors.New("nil definition"))
	}
	if err := def.validate(name); err != nil {
		return err
	}
	t.Lock()
	defer t.Unlock()
	if _, ok := t.definitions[name]; ok {
		if !t.allowOverride {
			return newBeanError(ErrDuplicateBean, name, errors.Errorf("definition %v already registered", t.definitions[name]))
		}
	} else {
		t.names = append(t.names, name)
	}
	t.definitions[name] = def.copy()
	return nil
}

func (t *registry) remove(name string) bool {
	t.Lock()
	defer t.Unlock()
	if _, ok := t.definitions[name]; !ok {
		return false
	}
	delete(t.definitions, name)
	for i, n := range t.names {
		if n == name {
			t.names = append(t.names[:i:i], t.names[i+1:]...)
			break
		}
	}
	return true
}

func (t *registry) find(name string) (*BeanDefinition, bool) {
	t.RLock()
	defer t.RUnlock()
	def, ok := t.definitions[name]
	return def, ok
}

func (t *registry) contains(name string) bool {
	_, ok := t.find(name)
	return ok
}

func (t *registry) list() []string {
	t.RLock()
	defer t.RUnlock()
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

func (t *registry) count() int {
	t.RLock()
	defer t.RUnlock()
	return len(t.names)
}

/**
	Names of definitions whose type is assignable to ifaceType, in registration order
 */
func (t *registry) findByType(ifaceType reflect.Type) []string {
	t.RLock()
	defer t.RUnlock()
	var res []string
	for _, name := range t.names {
		if assignableTo(t.definitions[name].Type, ifaceType) {
			res = append(res, name)
		}
	}
	return res
}

func assignableTo(classPtr, ifaceType reflect.Type) bool {
	if classPtr == nil || ifaceType == nil {
		return false
	}
	if ifaceType.Kind() == reflect.Interface {
		return classPtr.Implements(ifaceType)
	}
	return classPtr.AssignableTo(ifaceType)
}
