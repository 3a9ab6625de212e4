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

import "reflect"

/**
@author Alex Shvid
 */

/**
	Prefix that selects the FactoryBean itself instead of its product.
 */
const FactoryBeanPrefix = "&"

/**
	Name of the optional bean that replaces the default TypeConverter on refresh.
 */
const ConversionServiceBeanName = "conversionService"

type BeanFactory interface {

	/**
		Gets the bean by name, creating it on first request for singletons
		and on every request for prototypes.
	 */
	Resolve(name string) (interface{}, error)

	/**
		Same as Resolve, but fails with ErrNotOfRequiredType when the bean
		is not assignable to requiredType.
	 */
	ResolveAs(name string, requiredType reflect.Type) (interface{}, error)

	/**
		True if this factory or any parent knows the name.
	 */
	Contains(name string) bool

	IsSingleton(name string) (bool, error)

	IsPrototype(name string) (bool, error)
}

type HierarchicalBeanFactory interface {
	BeanFactory

	/**
		Parent factory or nil
	 */
	Parent() BeanFactory

	/**
		Ignores the parent
	 */
	ContainsLocal(name string) bool
}

type ListableBeanFactory interface {
	BeanFactory

	/**
		Definition names in registration order
	 */
	DefinitionNames() []string

	/**
		Names of local definitions and singletons assignable to typ, the type
		is a pointer to the structure or an interface
	 */
	BeanNamesForType(typ reflect.Type) []string

	BeansOfType(typ reflect.Type) (map[string]interface{}, error)
}

type BeanDefinitionRegistry interface {

	/**
		Fails with ErrDuplicateBean on a taken name unless overriding is allowed
	 */
	RegisterDefinition(name string, def *BeanDefinition) error

	RemoveDefinition(name string) error

	/**
		Registered definition, post-processors may change its properties
		before the first bean is created
	 */
	Definition(name string) (*BeanDefinition, error)

	ContainsDefinition(name string) bool

	DefinitionCount() int
}

type ConfigurableBeanFactory interface {
	HierarchicalBeanFactory
	ListableBeanFactory
	BeanDefinitionRegistry

	/**
		Adds processor that implements one or more hook interfaces.
		Adding the same instance again moves it to the end of the chain.
	 */
	AddBeanPostProcessor(processor interface{}) error

	BeanPostProcessorCount() int

	SetConversion(TypeConverter)

	Conversion() TypeConverter

	RegisterSingleton(name string, obj interface{}) error

	/**
		True while the singleton is being built by any caller
	 */
	IsCurrentlyInCreation(name string) bool

	/**
		Creates all non-lazy singletons in registration order
	 */
	PreInstantiateSingletons() error

	DestroySingleton(name string) error

	DestroySingletons() error
}

/**
	Type conversion used for literal property values whose runtime type
	differs from the declared field type.
 */
type TypeConverter interface {
	CanConvert(from, to reflect.Type) bool
	Convert(value interface{}, to reflect.Type) (interface{}, error)
}

type Context interface {
	HierarchicalBeanFactory
	ListableBeanFactory

	/**
		Underlying bean factory
	 */
	Factory() ConfigurableBeanFactory

	/**
		Destroy all singletons that implement interface DisposableBean or declare a destroy method.
	 */
	Close() error

	/**
		Gets obj by type, that is a pointer to the structure or interface.
		Returns false when there is no candidate or more than one.

		Example:
			package app
			type UserService interface {
			}

			b, ok := ctx.Bean(reflect.TypeOf((*app.UserService)(nil)).Elem())
	 */
	Bean(typ reflect.Type) (bean interface{}, ok bool)

	/**
		Panic if bean not found
	 */
	MustBean(typ reflect.Type) interface{}

	/**
		Lookup registered bean in context by name.

		Example:
			b, err := ctx.Lookup("userService")
	 */
	Lookup(name string) (interface{}, error)

	/**
		Inject fields in to the obj on runtime.
		Does not add a new obj in to the context, so this method is only for one-time use.

		Example:
			type requestProcessor struct {
				app.UserService  `inject`
				Dao   *app.Dao   `inject:"userDao"`
			}

			rp := new(requestProcessor)
			ctx.Inject(rp)
			required.NotNil(t, rp.UserService)
	 */
	Inject(interface{}) error
}

/**
	The bean object would be created after Object() function call.

	ObjectType can be pointer to structure or interface.

	Singleton means that object would be created only once.
 */
type FactoryBean interface {

	/**
		Create actual object
	 */
	Object() (interface{}, error)

	/**
		Get object interface or pointer on struct
	 */
	ObjectType() reflect.Type

	/**
		Must be a single object in context
	 */
	Singleton() bool
}

/**
	Initializing bean context is using to run required method on post-construct injection stage
 */
type InitializingBean interface {

	/**
		Runs this method automatically after injecting properties and before post-initialization processors
	 */
	PostConstruct() error
}

/**
	This interface uses to select objects that could free resources after closing context
 */
type DisposableBean interface {

	/**
		During close context would be called for each singleton in reverse creation order.
	 */
	Destroy() error
}

type BeanNameAware interface {
	SetBeanName(name string)
}

type BeanFactoryAware interface {
	SetBeanFactory(factory BeanFactory) error
}

type ContextAware interface {
	SetContext(ctx Context) error
}

/**
	Runs once on context refresh after all definitions are loaded and before any bean is created.
 */
type BeanFactoryPostProcessor interface {
	PostProcessBeanFactory(factory ConfigurableBeanFactory) error
}
