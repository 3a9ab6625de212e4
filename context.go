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
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

/**
@author Alex Shvid
*/

var (
	beanFactoryPostProcessorClass = reflect.TypeOf((*BeanFactoryPostProcessor)(nil)).Elem()
	typeConverterClass            = reflect.TypeOf((*TypeConverter)(nil)).Elem()
)

type context struct {
	*DefaultBeanFactory

	parent Context

	closeOnce sync.Once
	closeErr  error

	log *zap.Logger
}

/**
	Creates the factory, loads definitions and refreshes the context,
	all singletons are created before return.
 */
func Create(opts ...Option) (Context, error) {
	o := &options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	factoryOpts := []FactoryOption{
		WithFactoryLogger(o.log),
		WithOverriding(o.allowOverride),
		WithInstantiation(o.instantiation),
	}
	if o.parent != nil {
		factoryOpts = append(factoryOpts, WithFactoryParent(o.parent))
	}

	ctx := &context{
		DefaultBeanFactory: NewFactory(factoryOpts...),
		parent:             o.parent,
		log:                o.log,
	}
	if o.conversion != nil {
		ctx.SetConversion(o.conversion)
	}
	for _, s := range o.schemas {
		ctx.RegisterSchema(s)
	}

	if err := ctx.load(o); err != nil {
		return nil, err
	}
	if err := ctx.refresh(o); err != nil {
		return nil, multierr.Append(err, ctx.DestroySingletons())
	}
	return ctx, nil
}

func (t *context) load(o *options) error {
	for _, d := range o.definitions {
		if err := t.RegisterDefinition(d.name, d.def); err != nil {
			return err
		}
	}
	for _, s := range o.singletons {
		if err := t.RegisterSingleton(s.name, s.obj); err != nil {
			return err
		}
	}
	for i, loader := range o.loaders {
		if loader == nil {
			return errors.Errorf("null descriptor loader on position %d", i)
		}
		if err := loader(t); err != nil {
			return err
		}
	}
	return nil
}

func (t *context) refresh(o *options) error {
	if err := t.AddBeanPostProcessor(&contextAwareProcessor{ctx: t}); err != nil {
		return err
	}

	var factoryProcessors []BeanFactoryPostProcessor
	if len(o.properties) > 0 {
		factoryProcessors = append(factoryProcessors, NewPlaceholderConfigurer(o.properties...))
	}
	var beanProcessors []interface{}
	for i, p := range o.processors {
		switch {
		case p == nil:
			return errors.Errorf("null post-processor on position %d", i)
		case IsBeanPostProcessor(p):
			beanProcessors = append(beanProcessors, p)
			if fp, ok := p.(BeanFactoryPostProcessor); ok {
				factoryProcessors = append(factoryProcessors, fp)
			}
		default:
			fp, ok := p.(BeanFactoryPostProcessor)
			if !ok {
				return errors.Errorf("type '%T' on position %d is not a post-processor", p, i)
			}
			factoryProcessors = append(factoryProcessors, fp)
		}
	}

	for _, name := range t.namesOf(beanFactoryPostProcessorClass) {
		obj, err := t.Resolve(name)
		if err != nil {
			return err
		}
		factoryProcessors = append(factoryProcessors, obj.(BeanFactoryPostProcessor))
	}
	for _, fp := range factoryProcessors {
		if err := fp.PostProcessBeanFactory(t); err != nil {
			return errors.Wrapf(err, "bean factory post-processor '%T'", fp)
		}
	}

	for _, p := range beanProcessors {
		if aware, ok := p.(BeanFactoryAware); ok {
			if err := aware.SetBeanFactory(t); err != nil {
				return err
			}
		}
		if err := t.AddBeanPostProcessor(p); err != nil {
			return err
		}
	}
	for _, name := range t.DefinitionNames() {
		def, err := t.Definition(name)
		if err != nil || !isProcessorType(def.Type) {
			continue
		}
		obj, err := t.Resolve(name)
		if err != nil {
			return err
		}
		if err := t.AddBeanPostProcessor(obj); err != nil {
			return newBeanError(ErrInvalidDefinition, name, err)
		}
	}

	if t.ContainsDefinition(ConversionServiceBeanName) {
		obj, err := t.ResolveAs(ConversionServiceBeanName, typeConverterClass)
		if err != nil {
			return err
		}
		t.SetConversion(obj.(TypeConverter))
	}

	if err := t.PreInstantiateSingletons(); err != nil {
		return err
	}
	t.log.Info("context refreshed",
		zap.Int("definitions", t.DefinitionCount()),
		zap.Int("singletons", t.singletons.SingletonCount()),
		zap.Int("processors", t.BeanPostProcessorCount()))
	return nil
}

/**
	Definition names whose type implements the interface, without resolving anything
 */
func (t *context) namesOf(ifaceType reflect.Type) []string {
	return t.registry.findByType(ifaceType)
}

func (t *context) Factory() ConfigurableBeanFactory {
	return t.DefaultBeanFactory
}

func (t *context) Parent() BeanFactory {
	if t.parent == nil {
		return nil
	}
	return t.parent
}

func (t *context) Bean(typ reflect.Type) (interface{}, bool) {
	name, err := t.searchByType(typ)
	if err != nil {
		if t.parent != nil {
			return t.parent.Bean(typ)
		}
		return nil, false
	}
	obj, err := t.Resolve(name)
	if err != nil {
		return nil, false
	}
	return obj, true
}

func (t *context) MustBean(typ reflect.Type) interface{} {
	if bean, ok := t.Bean(typ); ok {
		return bean
	} else {
		panic(fmt.Sprintf("bean not found %v", typ))
	}
}

func (t *context) Lookup(name string) (interface{}, error) {
	return t.Resolve(name)
}

func (t *context) Inject(obj interface{}) error {
	if obj == nil {
		return errors.New("null obj is are not allowed")
	}
	classPtr := reflect.TypeOf(obj)
	if classPtr.Kind() != reflect.Ptr {
		return errors.Errorf("non-pointer instances are not allowed, type %v", classPtr)
	}
	schema, err := t.schemas.schema(classPtr)
	if err != nil {
		return err
	}
	value := reflect.ValueOf(obj).Elem()
	for _, inject := range schema.injects {
		var impl interface{}
		if inject.qualifier != "" {
			impl, err = t.Resolve(inject.qualifier)
			if err != nil {
				return errors.Wrapf(err, "field '%s'", inject.fieldName)
			}
		} else {
			var ok bool
			if impl, ok = t.Bean(inject.fieldType); !ok {
				return errors.Errorf("implementation not found for field '%s' with type '%v'", inject.fieldName, inject.fieldType)
			}
		}
		if err := inject.inject(value, impl); err != nil {
			return err
		}
	}
	return nil
}

/**
	Single candidate name for the type. Anonymous fields do not make their
	encapsulator a candidate for the embedded interface.
 */
func (t *context) searchByType(ifaceType reflect.Type) (string, error) {
	var candidates []string
	for _, name := range t.BeanNamesForType(ifaceType) {
		if def, ok := t.registry.find(beanName(name)); ok && ifaceType.Kind() == reflect.Interface && !isFactoryDereference(name) {
			if schema, err := t.schemas.schema(def.Type); err == nil && !schema.implements(ifaceType) {
				continue
			}
		}
		candidates = append(candidates, name)
	}
	switch len(candidates) {
	case 0:
		return "", errors.Errorf("can not find implementations for '%v' interface", ifaceType)
	case 1:
		return candidates[0], nil
	default:
		return "", errors.Errorf("found two or more beans have the same interface '%v', candidates=%v", ifaceType, candidates)
	}
}

func (t *context) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.DestroySingletons()
		t.log.Info("context closed", zap.Error(t.closeErr))
	})
	return t.closeErr
}

/**
	Calls ContextAware beans before their initialization
 */
type contextAwareProcessor struct {
	ctx Context
}

func (t *contextAwareProcessor) PostProcessBeforeInitialization(bean interface{}, name string) (interface{}, error) {
	if aware, ok := bean.(ContextAware); ok {
		if err := aware.SetContext(t.ctx); err != nil {
			return nil, err
		}
	}
	return bean, nil
}
