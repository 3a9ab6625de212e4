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
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

const (
	ScopeSingleton = "singleton"
	ScopePrototype = "prototype"
)

/**
	Lazy pointer to another named bean, resolved on property population.
 */
type BeanReference struct {
	Name string
}

func Ref(name string) BeanReference {
	return BeanReference{Name: name}
}

func (t BeanReference) String() string {
	return fmt.Sprintf("ref(%s)", t.Name)
}

/**
	Single property binding, Value is either a literal or a BeanReference.
 */
type PropertyValue struct {
	Name  string
	Value interface{}
}

/**
	Ordered set of property bindings, unique by name.
 */
type PropertyValues []PropertyValue

/**
	Add or replace binding keeping the original position.
 */
func (t PropertyValues) With(name string, value interface{}) PropertyValues {
	for i, pv := range t {
		if pv.Name == name {
			out := t.Copy()
			out[i].Value = value
			return out
		}
	}
	return append(t.Copy(), PropertyValue{Name: name, Value: value})
}

func (t PropertyValues) Get(name string) (interface{}, bool) {
	for _, pv := range t {
		if pv.Name == name {
			return pv.Value, true
		}
	}
	return nil, false
}

func (t PropertyValues) Copy() PropertyValues {
	if t == nil {
		return nil
	}
	out := make(PropertyValues, len(t))
	copy(out, t)
	return out
}

/**
	BeanDefinition declares how to build one managed object.

	Type is the pointer to the structure that the instantiation strategy allocates,
	for example reflect.TypeOf((*userService)(nil)).
 */
type BeanDefinition struct {

	/**
		Pointer to the struct
	 */
	Type reflect.Type

	/**
		ScopeSingleton (default when empty) or ScopePrototype
	 */
	Scope string

	/**
		Property bindings in declaration order
	 */
	Properties PropertyValues

	/**
		Optional method names called after population and before destruction
	 */
	InitMethod    string
	DestroyMethod string
}

func NewDefinition(typ reflect.Type, properties ...PropertyValue) *BeanDefinition {
	return &BeanDefinition{
		Type:       typ,
		Scope:      ScopeSingleton,
		Properties: PropertyValues(properties),
	}
}

func (t *BeanDefinition) IsSingleton() bool {
	return t.Scope == ScopeSingleton || t.Scope == ""
}

func (t *BeanDefinition) IsPrototype() bool {
	return t.Scope == ScopePrototype
}

/**
	References returns the names of all beans this definition points to.
 */
func (t *BeanDefinition) References() []string {
	var refs []string
	for _, pv := range t.Properties {
		if ref, ok := pv.Value.(BeanReference); ok {
			refs = append(refs, ref.Name)
		}
	}
	return refs
}

func (t *BeanDefinition) copy() *BeanDefinition {
	c := *t
	c.Properties = t.Properties.Copy()
	return &c
}

func (t *BeanDefinition) validate(name string) error {
	if name == "" {
		return newBeanError(ErrInvalidDefinition, name, errors.New("empty bean name"))
	}
	if t.Type == nil {
		return newBeanError(ErrInvalidDefinition, name, errors.New("bean type is not set"))
	}
	seen := make(map[string]bool, len(t.Properties))
	for _, pv := range t.Properties {
		if pv.Name == "" {
			return newBeanError(ErrInvalidDefinition, name, errors.New("property with empty name"))
		}
		if seen[pv.Name] {
			return newPropertyError(ErrInvalidDefinition, name, pv.Name, errors.New("property declared twice"))
		}
		seen[pv.Name] = true
	}
	return nil
}

func (t *BeanDefinition) String() string {
	scope := t.Scope
	if scope == "" {
		scope = ScopeSingleton
	}
	return fmt.Sprintf("%v(%s)", t.Type, scope)
}
