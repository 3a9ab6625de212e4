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

package descriptor

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

/**
	TypeRegistry maps class names used in descriptor files to Go types.
	Go can not load a type by name, so every class has to be registered up front.
 */
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]reflect.Type)}
}

/**
	Registers pointer to struct under the class name
 */
func (t *TypeRegistry) Register(class string, classPtr reflect.Type) error {
	if class == "" {
		return errors.New("empty class name")
	}
	if classPtr == nil || classPtr.Kind() != reflect.Ptr || classPtr.Elem().Kind() != reflect.Struct {
		return errors.Errorf("class '%s' must be a pointer to struct, got '%v'", class, classPtr)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if already, ok := t.types[class]; ok && already != classPtr {
		return errors.Errorf("class '%s' is already registered as '%v'", class, already)
	}
	t.types[class] = classPtr
	return nil
}

/**
	Registers the types of sample pointers under their qualified names, like "app.userService"

	Example:
		types.Add((*app.userService)(nil), (*app.userDao)(nil))
 */
func (t *TypeRegistry) Add(samples ...interface{}) error {
	for _, s := range samples {
		classPtr := reflect.TypeOf(s)
		if classPtr == nil || classPtr.Kind() != reflect.Ptr {
			return errors.Errorf("pointer sample expected, got '%v'", classPtr)
		}
		if err := t.Register(classPtr.Elem().String(), classPtr); err != nil {
			return err
		}
	}
	return nil
}

func (t *TypeRegistry) Lookup(class string) (reflect.Type, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	typ, ok := t.types[class]
	return typ, ok
}
