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

	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

/**
	Produces a bare, property-less instance from a definition.
 */
type InstantiationStrategy interface {
	Instantiate(def *BeanDefinition, name string) (interface{}, error)
}

/**
	Allocates the zero value of the struct behind the definition pointer type.
 */
type SimpleInstantiation struct {
}

func (SimpleInstantiation) Instantiate(def *BeanDefinition, name string) (interface{}, error) {
	classPtr := def.Type
	if classPtr.Kind() != reflect.Ptr {
		return nil, newBeanError(ErrInvalidDefinition, name, errors.Errorf("non-pointer class '%v' can not be instantiated", classPtr))
	}
	if classPtr.Elem().Kind() == reflect.Interface {
		return nil, newBeanError(ErrInvalidDefinition, name, errors.Errorf("interface '%v' can not be instantiated", classPtr.Elem()))
	}
	return reflect.New(classPtr.Elem()).Interface(), nil
}

/**
	Instantiation through a constructor function per type, falls back to allocation.
 */
type ConstructorInstantiation map[reflect.Type]func() interface{}

func (t ConstructorInstantiation) Instantiate(def *BeanDefinition, name string) (interface{}, error) {
	if ctor, ok := t[def.Type]; ok {
		obj := ctor()
		if obj == nil {
			return nil, newBeanError(ErrBeanCreation, name, errors.Errorf("constructor of '%v' returned nil", def.Type))
		}
		if reflect.TypeOf(obj) != def.Type {
			return nil, newBeanError(ErrNotOfRequiredType, name, errors.Errorf("constructor returned '%T', expected '%v'", obj, def.Type))
		}
		return obj, nil
	}
	return SimpleInstantiation{}.Instantiate(def, name)
}

/**
	Calls the no-argument method by name, the method may return an error.
 */
func invokeMethod(obj interface{}, method string) error {
	m := reflect.ValueOf(obj).MethodByName(method)
	if !m.IsValid() {
		return errors.Errorf("method '%s' not found in '%T'", method, obj)
	}
	mt := m.Type()
	if mt.NumIn() != 0 {
		return errors.Errorf("method '%s' of '%T' must have no arguments", method, obj)
	}
	out := m.Call(nil)
	if n := len(out); n > 0 {
		if err, ok := out[n-1].Interface().(error); ok && err != nil {
			return err
		}
	}
	return nil
}
