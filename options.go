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
	"go.uber.org/zap"
)

/**
@author Alex Shvid
*/

type namedDefinition struct {
	name string
	def  *BeanDefinition
}

type namedSingleton struct {
	name string
	obj  interface{}
}

type options struct {
	definitions   []namedDefinition
	singletons    []namedSingleton
	loaders       []func(BeanDefinitionRegistry) error
	processors    []interface{}
	schemas       []*Schema
	properties    []string
	parent        Context
	conversion    TypeConverter
	instantiation InstantiationStrategy
	allowOverride bool
	log           *zap.Logger
}

type Option func(*options)

func WithDefinition(name string, def *BeanDefinition) Option {
	return func(o *options) {
		o.definitions = append(o.definitions, namedDefinition{name: name, def: def})
	}
}

/**
	Registers an already built object as a finished singleton
 */
func WithSingleton(name string, obj interface{}) Option {
	return func(o *options) {
		o.singletons = append(o.singletons, namedSingleton{name: name, obj: obj})
	}
}

/**
	Loader that registers definitions from a descriptor source
 */
func WithDescriptors(loader func(BeanDefinitionRegistry) error) Option {
	return func(o *options) {
		o.loaders = append(o.loaders, loader)
	}
}

/**
	Bean post-processors and bean factory post-processors created outside of the context
 */
func WithPostProcessors(processors ...interface{}) Option {
	return func(o *options) {
		o.processors = append(o.processors, processors...)
	}
}

func WithSchemas(schemas ...*Schema) Option {
	return func(o *options) {
		o.schemas = append(o.schemas, schemas...)
	}
}

/**
	Property files for ${key} placeholders in literal property values
 */
func WithProperties(paths ...string) Option {
	return func(o *options) {
		o.properties = append(o.properties, paths...)
	}
}

func WithParent(parent Context) Option {
	return func(o *options) {
		o.parent = parent
	}
}

func WithConversion(conv TypeConverter) Option {
	return func(o *options) {
		o.conversion = conv
	}
}

func WithInstantiationStrategy(strategy InstantiationStrategy) Option {
	return func(o *options) {
		o.instantiation = strategy
	}
}

func WithDefinitionOverriding() Option {
	return func(o *options) {
		o.allowOverride = true
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}
