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

/**
	Hook interfaces of the post-processor chain. A processor implements any
	subset of them. Returning nil from a hook means no opinion, the pipeline
	continues with the current object.
 */

type InstantiationAwareProcessor interface {

	/**
		May return a surrogate that replaces the whole normal creation of the bean.
		The surrogate still goes through the after-initialization pass.
	 */
	PostProcessBeforeInstantiation(typ reflect.Type, name string) (interface{}, error)
}

type PostInstantiationProcessor interface {

	/**
		Returning false skips the property population of the bean
	 */
	PostProcessAfterInstantiation(bean interface{}, name string) (bool, error)
}

type PropertyValuesProcessor interface {

	/**
		Returns the property values to apply, nil keeps the current ones
	 */
	PostProcessPropertyValues(pvs PropertyValues, bean interface{}, name string) (PropertyValues, error)
}

type EarlyReferenceProcessor interface {

	/**
		Reference handed out to a circular dependency before the bean is initialized
	 */
	EarlyBeanReference(bean interface{}, name string) (interface{}, error)
}

type BeforeInitializationProcessor interface {
	PostProcessBeforeInitialization(bean interface{}, name string) (interface{}, error)
}

type AfterInitializationProcessor interface {
	PostProcessAfterInitialization(bean interface{}, name string) (interface{}, error)
}

type FailedCreationProcessor interface {

	/**
		Called when a build fails after instantiation, the instance is discarded
	 */
	PostProcessFailedCreation(name string)
}

/**
	True if obj implements at least one processor hook
 */
func IsBeanPostProcessor(obj interface{}) bool {
	switch obj.(type) {
	case InstantiationAwareProcessor, PostInstantiationProcessor, PropertyValuesProcessor,
		EarlyReferenceProcessor, BeforeInitializationProcessor, AfterInitializationProcessor,
		FailedCreationProcessor:
		return true
	}
	return false
}

var processorHookTypes = []reflect.Type{
	reflect.TypeOf((*InstantiationAwareProcessor)(nil)).Elem(),
	reflect.TypeOf((*PostInstantiationProcessor)(nil)).Elem(),
	reflect.TypeOf((*PropertyValuesProcessor)(nil)).Elem(),
	reflect.TypeOf((*EarlyReferenceProcessor)(nil)).Elem(),
	reflect.TypeOf((*BeforeInitializationProcessor)(nil)).Elem(),
	reflect.TypeOf((*AfterInitializationProcessor)(nil)).Elem(),
	reflect.TypeOf((*FailedCreationProcessor)(nil)).Elem(),
}

func isProcessorType(classPtr reflect.Type) bool {
	for _, hook := range processorHookTypes {
		if classPtr.Implements(hook) {
			return true
		}
	}
	return false
}

/**
	Ordered processor list, readers work on a snapshot.
 */
type processorChain struct {
	sync.RWMutex
	list []interface{}
}

func (t *processorChain) add(processor interface{}) error {
	if processor == nil {
		return errors.New("nil post-processor")
	}
	if !IsBeanPostProcessor(processor) {
		return errors.Errorf("type '%T' implements no post-processor hook", processor)
	}
	t.Lock()
	defer t.Unlock()
	for i, p := range t.list {
		if sameObject(p, processor) {
			t.list = append(t.list[:i:i], t.list[i+1:]...)
			break
		}
	}
	t.list = append(t.list, processor)
	return nil
}

func (t *processorChain) snapshot() []interface{} {
	t.RLock()
	defer t.RUnlock()
	return t.list
}

func (t *processorChain) size() int {
	t.RLock()
	defer t.RUnlock()
	return len(t.list)
}

func (t *processorChain) beforeInstantiation(typ reflect.Type, name string) (interface{}, error) {
	for _, p := range t.snapshot() {
		if h, ok := p.(InstantiationAwareProcessor); ok {
			obj, err := h.PostProcessBeforeInstantiation(typ, name)
			if err != nil {
				return nil, err
			}
			if obj != nil {
				return obj, nil
			}
		}
	}
	return nil, nil
}

func (t *processorChain) afterInstantiation(bean interface{}, name string) (bool, error) {
	for _, p := range t.snapshot() {
		if h, ok := p.(PostInstantiationProcessor); ok {
			cont, err := h.PostProcessAfterInstantiation(bean, name)
			if err != nil {
				return false, err
			}
			if !cont {
				return false, nil
			}
		}
	}
	return true, nil
}

func (t *processorChain) propertyValues(pvs PropertyValues, bean interface{}, name string) (PropertyValues, error) {
	for _, p := range t.snapshot() {
		if h, ok := p.(PropertyValuesProcessor); ok {
			next, err := h.PostProcessPropertyValues(pvs, bean, name)
			if err != nil {
				return nil, err
			}
			if next != nil {
				pvs = next
			}
		}
	}
	return pvs, nil
}

func (t *processorChain) earlyReference(bean interface{}, name string) (interface{}, error) {
	exposed := bean
	for _, p := range t.snapshot() {
		if h, ok := p.(EarlyReferenceProcessor); ok {
			obj, err := h.EarlyBeanReference(exposed, name)
			if err != nil {
				return nil, err
			}
			if obj != nil {
				exposed = obj
			}
		}
	}
	return exposed, nil
}

func (t *processorChain) beforeInitialization(bean interface{}, name string) (interface{}, error) {
	current := bean
	for _, p := range t.snapshot() {
		if h, ok := p.(BeforeInitializationProcessor); ok {
			obj, err := h.PostProcessBeforeInitialization(current, name)
			if err != nil {
				return nil, err
			}
			if obj != nil {
				current = obj
			}
		}
	}
	return current, nil
}

func (t *processorChain) afterInitialization(bean interface{}, name string) (interface{}, error) {
	current := bean
	for _, p := range t.snapshot() {
		if h, ok := p.(AfterInitializationProcessor); ok {
			obj, err := h.PostProcessAfterInitialization(current, name)
			if err != nil {
				return nil, err
			}
			if obj != nil {
				current = obj
			}
		}
	}
	return current, nil
}

func (t *processorChain) failedCreation(name string) {
	for _, p := range t.snapshot() {
		if h, ok := p.(FailedCreationProcessor); ok {
			h.PostProcessFailedCreation(name)
		}
	}
}

/**
	Identity comparison, pointers by address and everything else by equality when comparable
 */
func sameObject(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Slice:
		return va.Pointer() == vb.Pointer()
	}
	if va.Type().Comparable() {
		return a == b
	}
	return false
}
