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
	"strings"
	"sync"

	"github.com/consensusdb/beans/convert"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

/**
@author Alex Shvid
*/

var factoryBeanClass = reflect.TypeOf((*FactoryBean)(nil)).Elem()

type FactoryOption func(*DefaultBeanFactory)

func WithFactoryParent(parent BeanFactory) FactoryOption {
	return func(t *DefaultBeanFactory) {
		t.parent = parent
	}
}

func WithFactoryLogger(log *zap.Logger) FactoryOption {
	return func(t *DefaultBeanFactory) {
		if log != nil {
			t.log = log
		}
	}
}

func WithInstantiation(strategy InstantiationStrategy) FactoryOption {
	return func(t *DefaultBeanFactory) {
		if strategy != nil {
			t.instantiation = strategy
		}
	}
}

/**
	Allows registering a definition under a taken name, the last registration wins
 */
func WithOverriding(allow bool) FactoryOption {
	return func(t *DefaultBeanFactory) {
		t.registry.allowOverride = allow
	}
}

/**
	DefaultBeanFactory creates, wires and caches beans from registered definitions.
 */
type DefaultBeanFactory struct {
	registry   *registry
	singletons *SingletonRegistry

	/**
		Cached products of singleton factory beans, by factory name
	 */
	products *SingletonRegistry

	processors processorChain
	schemas    schemaCache

	parent        BeanFactory
	instantiation InstantiationStrategy

	conversionMu sync.RWMutex
	conversion   TypeConverter

	log *zap.Logger
}

func NewFactory(opts ...FactoryOption) *DefaultBeanFactory {
	t := &DefaultBeanFactory{
		registry:      newRegistry(),
		singletons:    NewSingletonRegistry(),
		products:      NewSingletonRegistry(),
		instantiation: SimpleInstantiation{},
		conversion:    convert.New(),
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *DefaultBeanFactory) Resolve(name string) (interface{}, error) {
	return t.doResolve(name, newResolution())
}

func (t *DefaultBeanFactory) ResolveAs(name string, requiredType reflect.Type) (interface{}, error) {
	obj, err := t.Resolve(name)
	if err != nil {
		return nil, err
	}
	if requiredType != nil && !reflect.TypeOf(obj).AssignableTo(requiredType) {
		return nil, newBeanError(ErrNotOfRequiredType, beanName(name), errors.Errorf("bean of type '%T' is not assignable to '%v'", obj, requiredType))
	}
	return obj, nil
}

/**
	Typed lookup by name.
 */
func Get[T any](factory BeanFactory, name string) (T, error) {
	var zero T
	obj, err := factory.ResolveAs(name, reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return zero, err
	}
	return obj.(T), nil
}

func beanName(name string) string {
	return strings.TrimLeft(name, FactoryBeanPrefix)
}

func isFactoryDereference(name string) bool {
	return strings.HasPrefix(name, FactoryBeanPrefix)
}

func (t *DefaultBeanFactory) doResolve(name string, chain *resolution) (interface{}, error) {
	bn := beanName(name)

	obj, ok, err := t.singletons.get(bn, true)
	if err != nil {
		return nil, creationError(bn, err)
	}
	if ok {
		return t.objectForInstance(obj, name, bn, chain)
	}

	if chain.prototypes[bn] {
		return nil, newBeanError(ErrCurrentlyInCreation, bn, errors.Errorf("circular prototype reference %s", chain.describe(bn)))
	}

	def, ok := t.registry.find(bn)
	if !ok {
		if t.parent != nil {
			return t.parent.Resolve(name)
		}
		return nil, newBeanError(ErrNoSuchBean, bn, errors.Errorf("no bean named '%s' is defined", bn))
	}

	switch {
	case def.IsSingleton():
		chain.push(bn)
		obj, err = t.singletons.getOrCreate(bn, chain, func() (interface{}, error) {
			return t.createBean(bn, def, chain)
		})
		chain.pop(bn)
	case def.IsPrototype():
		obj, err = t.createPrototype(bn, def, chain)
	default:
		return nil, newBeanError(ErrUnsupportedScope, bn, errors.Errorf("scope '%s' is not supported", def.Scope))
	}
	if err != nil {
		return nil, err
	}
	return t.objectForInstance(obj, name, bn, chain)
}

func (t *DefaultBeanFactory) createPrototype(name string, def *BeanDefinition, chain *resolution) (interface{}, error) {
	if err := t.registry.checkPrototypeCycle(name, t.singletons.settled); err != nil {
		return nil, err
	}
	if err := chain.enterPrototype(name); err != nil {
		return nil, err
	}
	defer chain.leavePrototype(name)
	return t.createBean(name, def, chain)
}

/**
	Unwraps the product of a FactoryBean unless the name asks for the factory itself.
 */
func (t *DefaultBeanFactory) objectForInstance(obj interface{}, name, bn string, chain *resolution) (interface{}, error) {
	fb, isFactory := obj.(FactoryBean)
	if isFactoryDereference(name) {
		if !isFactory {
			return nil, newBeanError(ErrNotOfRequiredType, bn, errors.Errorf("bean of type '%T' is not a factory bean", obj))
		}
		return obj, nil
	}
	if !isFactory {
		return obj, nil
	}
	if fb.Singleton() {
		return t.products.getOrCreate(bn, chain, func() (interface{}, error) {
			return t.productOf(fb, bn)
		})
	}
	return t.productOf(fb, bn)
}

func (t *DefaultBeanFactory) productOf(fb FactoryBean, name string) (interface{}, error) {
	obj, err := fb.Object()
	if err != nil {
		return nil, newBeanError(ErrBeanCreation, name, errors.Wrap(err, "factory bean failed on object creation"))
	}
	if obj == nil {
		return nil, newBeanError(ErrBeanCreation, name, errors.Errorf("factory bean '%T' returned nil", fb))
	}
	obj, err = t.processors.afterInitialization(obj, name)
	if err != nil {
		return nil, creationError(name, err)
	}
	return obj, nil
}

/**
	Runs the creation pipeline for one bean: pre-instantiation, instantiation,
	early reference exposure, population, initialization and the final check that
	the returned object is the one already handed out to circular dependencies.
 */
func (t *DefaultBeanFactory) createBean(name string, def *BeanDefinition, chain *resolution) (interface{}, error) {
	t.log.Debug("create bean", zap.String("bean", name), zap.Stringer("definition", def))

	surrogate, err := t.processors.beforeInstantiation(def.Type, name)
	if err != nil {
		return nil, creationError(name, err)
	}
	if surrogate != nil {
		obj, err := t.processors.afterInitialization(surrogate, name)
		if err != nil {
			return nil, creationError(name, err)
		}
		return obj, nil
	}

	raw, err := t.instantiation.Instantiate(def, name)
	if err != nil {
		return nil, creationError(name, err)
	}

	exposed, err := t.completeBean(name, def, raw, chain)
	if err != nil {
		t.processors.failedCreation(name)
		return nil, err
	}
	return exposed, nil
}

func (t *DefaultBeanFactory) completeBean(name string, def *BeanDefinition, raw interface{}, chain *resolution) (interface{}, error) {
	if def.IsSingleton() {
		t.singletons.addFactory(name, func() (interface{}, error) {
			early, err := t.processors.earlyReference(raw, name)
			if err != nil {
				return nil, creationError(name, err)
			}
			t.log.Debug("early reference exposed", zap.String("bean", name), zap.String("type", reflect.TypeOf(early).String()))
			return early, nil
		})
	}

	if err := t.populateBean(name, def, raw, chain); err != nil {
		return nil, creationError(name, err)
	}

	exposed, err := t.initializeBean(name, def, raw)
	if err != nil {
		return nil, creationError(name, err)
	}

	if def.IsSingleton() {
		if early, ok := t.singletons.sealEarly(name); ok {
			if sameObject(exposed, raw) {
				exposed = early
			} else if !sameObject(exposed, early) {
				return nil, newBeanError(ErrInconsistentProxy, name, errors.Errorf("early reference '%T' was injected into other beans, but the final bean is '%T'", early, exposed))
			}
		}
		t.registerDisposable(name, def, raw)
	}
	return exposed, nil
}

func (t *DefaultBeanFactory) initializeBean(name string, def *BeanDefinition, raw interface{}) (interface{}, error) {
	if aware, ok := raw.(BeanNameAware); ok {
		aware.SetBeanName(name)
	}
	if aware, ok := raw.(BeanFactoryAware); ok {
		if err := aware.SetBeanFactory(t); err != nil {
			return nil, err
		}
	}

	current, err := t.processors.beforeInitialization(raw, name)
	if err != nil {
		return nil, err
	}

	if ib, ok := raw.(InitializingBean); ok {
		if err := ib.PostConstruct(); err != nil {
			return nil, errors.Wrap(err, "post construct")
		}
	}
	if def.InitMethod != "" {
		if err := invokeMethod(raw, def.InitMethod); err != nil {
			return nil, errors.Wrapf(err, "init method '%s'", def.InitMethod)
		}
	}

	return t.processors.afterInitialization(current, name)
}

func (t *DefaultBeanFactory) registerDisposable(name string, def *BeanDefinition, raw interface{}) {
	db, isDisposable := raw.(DisposableBean)
	if !isDisposable && def.DestroyMethod == "" {
		return
	}
	t.singletons.registerDisposable(name, func() error {
		var err error
		if isDisposable {
			err = multierr.Append(err, db.Destroy())
		}
		if def.DestroyMethod != "" {
			if e := invokeMethod(raw, def.DestroyMethod); e != nil {
				err = multierr.Append(err, errors.Wrapf(e, "destroy method '%s'", def.DestroyMethod))
			}
		}
		t.log.Debug("bean destroyed", zap.String("bean", name), zap.Error(err))
		return err
	})
}

func (t *DefaultBeanFactory) Contains(name string) bool {
	if t.ContainsLocal(name) {
		return true
	}
	return t.parent != nil && t.parent.Contains(name)
}

func (t *DefaultBeanFactory) ContainsLocal(name string) bool {
	bn := beanName(name)
	return t.registry.contains(bn) || t.singletons.ContainsSingleton(bn)
}

func (t *DefaultBeanFactory) IsSingleton(name string) (bool, error) {
	bn := beanName(name)
	if obj, ok := t.singletons.Singleton(bn); ok {
		if fb, ok := obj.(FactoryBean); ok && !isFactoryDereference(name) {
			return fb.Singleton(), nil
		}
		return true, nil
	}
	def, ok := t.registry.find(bn)
	if !ok {
		if t.parent != nil {
			return t.parent.IsSingleton(name)
		}
		return false, newBeanError(ErrNoSuchBean, bn, nil)
	}
	if def.IsSingleton() && !isFactoryDereference(name) && def.Type.Implements(factoryBeanClass) {
		fb, err := t.Resolve(FactoryBeanPrefix + bn)
		if err != nil {
			return false, err
		}
		return fb.(FactoryBean).Singleton(), nil
	}
	return def.IsSingleton(), nil
}

func (t *DefaultBeanFactory) IsPrototype(name string) (bool, error) {
	bn := beanName(name)
	def, ok := t.registry.find(bn)
	if !ok {
		if t.singletons.ContainsSingleton(bn) {
			return false, nil
		}
		if t.parent != nil {
			return t.parent.IsPrototype(name)
		}
		return false, newBeanError(ErrNoSuchBean, bn, nil)
	}
	if def.IsPrototype() {
		return true, nil
	}
	if !isFactoryDereference(name) && def.Type.Implements(factoryBeanClass) {
		single, err := t.IsSingleton(name)
		return !single, err
	}
	return false, nil
}

func (t *DefaultBeanFactory) Parent() BeanFactory {
	return t.parent
}

func (t *DefaultBeanFactory) DefinitionNames() []string {
	return t.registry.list()
}

func (t *DefaultBeanFactory) BeanNamesForType(typ reflect.Type) []string {
	var res []string
	seen := make(map[string]bool)
	for _, name := range t.registry.list() {
		seen[name] = true
		def, ok := t.registry.find(name)
		if !ok {
			continue
		}
		if obj, ok := t.singletons.Singleton(name); ok {
			if fb, ok := obj.(FactoryBean); ok {
				if assignableTo(fb.ObjectType(), typ) {
					res = append(res, name)
				} else if assignableTo(reflect.TypeOf(obj), typ) {
					res = append(res, FactoryBeanPrefix+name)
				}
				continue
			}
			if assignableTo(reflect.TypeOf(obj), typ) {
				res = append(res, name)
			}
			continue
		}
		if def.Type.Implements(factoryBeanClass) {
			if assignableTo(def.Type, typ) {
				res = append(res, FactoryBeanPrefix+name)
			}
			continue
		}
		if assignableTo(def.Type, typ) {
			res = append(res, name)
		}
	}
	for _, name := range t.singletons.SingletonNames() {
		if seen[name] {
			continue
		}
		if obj, ok := t.singletons.Singleton(name); ok && assignableTo(reflect.TypeOf(obj), typ) {
			res = append(res, name)
		}
	}
	return res
}

func (t *DefaultBeanFactory) BeansOfType(typ reflect.Type) (map[string]interface{}, error) {
	res := make(map[string]interface{})
	for _, name := range t.BeanNamesForType(typ) {
		obj, err := t.Resolve(name)
		if err != nil {
			return nil, err
		}
		if assignableTo(reflect.TypeOf(obj), typ) {
			res[name] = obj
		}
	}
	return res, nil
}

func (t *DefaultBeanFactory) RegisterDefinition(name string, def *BeanDefinition) error {
	if isFactoryDereference(name) {
		return newBeanError(ErrInvalidDefinition, name, errors.Errorf("bean name can not start with '%s'", FactoryBeanPrefix))
	}
	if err := t.registry.register(name, def); err != nil {
		return err
	}
	t.log.Debug("definition registered", zap.String("bean", name), zap.Stringer("definition", def))
	return nil
}

func (t *DefaultBeanFactory) RemoveDefinition(name string) error {
	if !t.registry.remove(name) {
		return newBeanError(ErrNoSuchBean, name, nil)
	}
	return t.DestroySingleton(name)
}

func (t *DefaultBeanFactory) Definition(name string) (*BeanDefinition, error) {
	def, ok := t.registry.find(name)
	if !ok {
		return nil, newBeanError(ErrNoSuchBean, name, nil)
	}
	return def, nil
}

func (t *DefaultBeanFactory) ContainsDefinition(name string) bool {
	return t.registry.contains(name)
}

func (t *DefaultBeanFactory) DefinitionCount() int {
	return t.registry.count()
}

func (t *DefaultBeanFactory) AddBeanPostProcessor(processor interface{}) error {
	if err := t.processors.add(processor); err != nil {
		return err
	}
	t.log.Debug("post-processor added", zap.String("type", reflect.TypeOf(processor).String()))
	return nil
}

func (t *DefaultBeanFactory) BeanPostProcessorCount() int {
	return t.processors.size()
}

func (t *DefaultBeanFactory) SetConversion(conv TypeConverter) {
	t.conversionMu.Lock()
	defer t.conversionMu.Unlock()
	t.conversion = conv
}

func (t *DefaultBeanFactory) Conversion() TypeConverter {
	t.conversionMu.RLock()
	defer t.conversionMu.RUnlock()
	return t.conversion
}

/**
	Declares the bindable properties of a type instead of scanning its tags.
 */
func (t *DefaultBeanFactory) RegisterSchema(schema *Schema) {
	t.schemas.register(schema)
}

func (t *DefaultBeanFactory) RegisterSingleton(name string, obj interface{}) error {
	if t.registry.contains(name) {
		return newBeanError(ErrDuplicateBean, name, errors.New("name is taken by a definition"))
	}
	return t.singletons.RegisterSingleton(name, obj)
}

/**
	True if the finished singleton is cached, never creates it
 */
func (t *DefaultBeanFactory) ContainsSingleton(name string) bool {
	return t.singletons.ContainsSingleton(name)
}

func (t *DefaultBeanFactory) SingletonNames() []string {
	return t.singletons.SingletonNames()
}

func (t *DefaultBeanFactory) IsCurrentlyInCreation(name string) bool {
	return t.singletons.inCreation(beanName(name))
}

func (t *DefaultBeanFactory) PreInstantiateSingletons() error {
	for _, name := range t.registry.list() {
		def, ok := t.registry.find(name)
		if !ok || !def.IsSingleton() {
			continue
		}
		lookup := name
		if def.Type.Implements(factoryBeanClass) {
			lookup = FactoryBeanPrefix + name
		}
		if _, err := t.Resolve(lookup); err != nil {
			return err
		}
	}
	t.log.Debug("singletons pre-instantiated", zap.Int("count", t.singletons.SingletonCount()))
	return nil
}

func (t *DefaultBeanFactory) DestroySingleton(name string) error {
	return multierr.Combine(t.products.DestroySingleton(name), t.singletons.DestroySingleton(name))
}

func (t *DefaultBeanFactory) DestroySingletons() error {
	return multierr.Combine(t.products.DestroySingletons(), t.singletons.DestroySingletons())
}
