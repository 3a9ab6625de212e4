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
	"io"
	"io/fs"
	"os"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/consensusdb/beans"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

/**
@author Alex Shvid
*/

var ErrUnknownClass = errors.New("unknown class")

type document struct {
	Beans []beanNode `yaml:"beans"`
}

type beanNode struct {
	ID            string         `yaml:"id"`
	Name          string         `yaml:"name"`
	Class         string         `yaml:"class"`
	Scope         string         `yaml:"scope"`
	InitMethod    string         `yaml:"init-method"`
	DestroyMethod string         `yaml:"destroy-method"`
	Properties    []propertyNode `yaml:"properties"`
}

type propertyNode struct {
	Name  string  `yaml:"name"`
	Value *string `yaml:"value"`
	Ref   string  `yaml:"ref"`
}

/**
	Reader registers bean definitions from YAML descriptors:

		beans:
		  - id: userService
		    class: app.userService
		    scope: singleton
		    init-method: Init
		    properties:
		      - { name: port, value: "8080" }
		      - { name: dao, ref: userDao }
 */
type Reader struct {
	registry beans.BeanDefinitionRegistry
	types    *TypeRegistry
	log      *zap.Logger
}

func NewReader(registry beans.BeanDefinitionRegistry, types *TypeRegistry, log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{registry: registry, types: types, log: log}
}

/**
	Loads all YAML documents of the stream, source names the stream in errors.
	Returns the number of registered definitions.
 */
func (r *Reader) Load(in io.Reader, source string) (int, error) {
	dec := yaml.NewDecoder(in)
	dec.KnownFields(true)
	count := 0
	for {
		var doc document
		if err := dec.Decode(&doc); err != nil {
			if err == io.EOF {
				break
			}
			return count, errors.Wrapf(err, "parse descriptor '%s'", source)
		}
		for i, node := range doc.Beans {
			name, def, err := r.definition(node)
			if err != nil {
				return count, errors.Wrapf(err, "bean on position %d in '%s'", i, source)
			}
			if err := r.registry.RegisterDefinition(name, def); err != nil {
				return count, errors.Wrapf(err, "descriptor '%s'", source)
			}
			count++
		}
	}
	r.log.Debug("descriptor loaded", zap.String("source", source), zap.Int("definitions", count))
	return count, nil
}

func (r *Reader) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "open descriptor '%s'", path)
	}
	defer f.Close()
	return r.Load(f, path)
}

/**
	Loads every file of fsys that matches the glob pattern, in lexical order.
	Works with embed.FS for descriptors compiled into the binary.
 */
func (r *Reader) LoadFS(fsys fs.FS, pattern string) (int, error) {
	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return 0, errors.Wrapf(err, "glob '%s'", pattern)
	}
	sort.Strings(matches)
	total := 0
	for _, path := range matches {
		f, err := fsys.Open(path)
		if err != nil {
			return total, errors.Wrapf(err, "open descriptor '%s'", path)
		}
		n, err := r.Load(f, path)
		f.Close()
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (r *Reader) definition(node beanNode) (string, *beans.BeanDefinition, error) {
	if node.Class == "" {
		return "", nil, errors.Errorf("class is not set for bean '%s%s'", node.ID, node.Name)
	}
	classPtr, ok := r.types.Lookup(node.Class)
	if !ok {
		return "", nil, errors.Wrapf(ErrUnknownClass, "class '%s'", node.Class)
	}
	name := node.ID
	if name == "" {
		name = node.Name
	}
	if name == "" {
		name = lowerFirst(classPtr.Elem().Name())
	}
	def := beans.NewDefinition(classPtr)
	if node.Scope != "" {
		def.Scope = node.Scope
	}
	def.InitMethod = node.InitMethod
	def.DestroyMethod = node.DestroyMethod
	for _, p := range node.Properties {
		if p.Name == "" {
			return "", nil, errors.Errorf("property without name in bean '%s'", name)
		}
		switch {
		case p.Ref != "" && p.Value != nil:
			return "", nil, errors.Errorf("property '%s' of bean '%s' has both value and ref", p.Name, name)
		case p.Ref != "":
			def.Properties = append(def.Properties, beans.PropertyValue{Name: p.Name, Value: beans.Ref(p.Ref)})
		case p.Value != nil:
			def.Properties = append(def.Properties, beans.PropertyValue{Name: p.Name, Value: *p.Value})
		default:
			def.Properties = append(def.Properties, beans.PropertyValue{Name: p.Name})
		}
	}
	return name, def, nil
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

/**
	Loader for beans.WithDescriptors reading the files in order
 */
func Files(types *TypeRegistry, log *zap.Logger, paths ...string) func(beans.BeanDefinitionRegistry) error {
	return func(registry beans.BeanDefinitionRegistry) error {
		r := NewReader(registry, types, log)
		for _, path := range paths {
			if _, err := r.LoadFile(path); err != nil {
				return err
			}
		}
		return nil
	}
}

/**
	Loader for beans.WithDescriptors reading the matching files of fsys
 */
func FS(types *TypeRegistry, log *zap.Logger, fsys fs.FS, pattern string) func(beans.BeanDefinitionRegistry) error {
	return func(registry beans.BeanDefinitionRegistry) error {
		_, err := NewReader(registry, types, log).LoadFS(fsys, pattern)
		return err
	}
}
