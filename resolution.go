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
	"strings"

	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

/**
	State of one top-level Resolve call, passed down the recursive lookups.
	It is confined to the calling goroutine and needs no locking.
 */
type resolution struct {

	/**
		Prototype names currently being built by this chain
	 */
	prototypes map[string]bool

	/**
		Names in the order they were entered, for error messages
	 */
	path []string
}

func newResolution() *resolution {
	return &resolution{
		prototypes: make(map[string]bool),
	}
}

func (r *resolution) enterPrototype(name string) error {
	if r.prototypes[name] {
		return newBeanError(ErrCurrentlyInCreation, name, errors.Errorf("circular prototype reference %s", r.describe(name)))
	}
	r.prototypes[name] = true
	r.push(name)
	return nil
}

func (r *resolution) leavePrototype(name string) {
	delete(r.prototypes, name)
	r.pop(name)
}

func (r *resolution) push(name string) {
	r.path = append(r.path, name)
}

func (r *resolution) pop(name string) {
	if n := len(r.path); n > 0 && r.path[n-1] == name {
		r.path = r.path[:n-1]
	}
}

func (r *resolution) describe(name string) string {
	return strings.Join(append(append([]string(nil), r.path...), name), " -> ")
}

/**
	Walks the references of the prototype name and fails when a prototype
	is reached again, before anything of the graph is instantiated.

	Singletons are walked through unless settled reports them as finished or
	under construction. Only those hand out an existing or early reference,
	any other singleton on the loop would ask for a new prototype again.
	A loop closing on a singleton is resolved by its early reference.
 */
func (t *registry) checkPrototypeCycle(name string, settled func(string) bool) error {
	visited := make(map[string]bool)
	stack := make(map[string]bool)
	var path []string

	var visit func(string) error
	visit = func(u string) error {
		visited[u] = true
		stack[u] = true
		path = append(path, u)

		def, ok := t.find(u)
		if ok {
			for _, v := range def.References() {
				dep, exists := t.find(v)
				if !exists {
					continue
				}
				if !dep.IsPrototype() && (!dep.IsSingleton() || settled(v)) {
					continue
				}
				if stack[v] {
					if dep.IsPrototype() {
						return newBeanError(ErrCurrentlyInCreation, name, errors.Errorf("circular prototype reference %s -> %s", strings.Join(path, " -> "), v))
					}
					continue
				}
				if !visited[v] {
					if err := visit(v); err != nil {
						return err
					}
				}
			}
		}

		path = path[:len(path)-1]
		stack[u] = false
		return nil
	}

	return visit(name)
}
