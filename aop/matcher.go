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

package aop

import (
	"path"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

/**
	Selects the types and methods an advice applies to.
 */
type Matcher interface {
	MatchesType(typ reflect.Type) bool
	MatchesMethod(method reflect.Method, typ reflect.Type) bool
}

type TypeFilter func(typ reflect.Type) bool

type MethodFilter func(method reflect.Method, typ reflect.Type) bool

type pointcut struct {
	types   TypeFilter
	methods MethodFilter
}

/**
	Matcher from two filters, nil filter matches everything.
 */
func NewMatcher(types TypeFilter, methods MethodFilter) Matcher {
	return pointcut{types: types, methods: methods}
}

func (t pointcut) MatchesType(typ reflect.Type) bool {
	return t.types == nil || t.types(typ)
}

func (t pointcut) MatchesMethod(method reflect.Method, typ reflect.Type) bool {
	return t.methods == nil || t.methods(method, typ)
}

/**
	Types assignable to one of the given ones, interfaces match their implementations
 */
func TypeIs(types ...reflect.Type) TypeFilter {
	return func(typ reflect.Type) bool {
		for _, t := range types {
			if t.Kind() == reflect.Interface && typ.Implements(t) || typ.AssignableTo(t) {
				return true
			}
		}
		return false
	}
}

func MethodNames(names ...string) MethodFilter {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(method reflect.Method, typ reflect.Type) bool {
		return set[method.Name]
	}
}

/**
	ExpressionPointcut matches `Type.Method` glob patterns, for example
	"*.userService.Get*" or "app.*.Save". The type part is matched against
	the struct name with its package, like "app.userService".
	Alternatives are separated by "||".
 */
type ExpressionPointcut struct {
	expression string
	patterns   []expressionPattern
}

type expressionPattern struct {
	typ, method string
}

func NewExpressionPointcut(expression string) (*ExpressionPointcut, error) {
	t := &ExpressionPointcut{expression: expression}
	for _, alt := range strings.Split(expression, "||") {
		alt = strings.TrimSpace(alt)
		i := strings.LastIndex(alt, ".")
		if i <= 0 || i == len(alt)-1 {
			return nil, errors.Errorf("invalid expression '%s', expected 'Type.Method'", alt)
		}
		p := expressionPattern{typ: alt[:i], method: alt[i+1:]}
		if _, err := path.Match(p.typ, ""); err != nil {
			return nil, errors.Wrapf(err, "type pattern '%s'", p.typ)
		}
		if _, err := path.Match(p.method, ""); err != nil {
			return nil, errors.Wrapf(err, "method pattern '%s'", p.method)
		}
		t.patterns = append(t.patterns, p)
	}
	return t, nil
}

func (t *ExpressionPointcut) String() string {
	return t.expression
}

func typeName(typ reflect.Type) string {
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	return typ.String()
}

func (t *ExpressionPointcut) MatchesType(typ reflect.Type) bool {
	name := typeName(typ)
	for _, p := range t.patterns {
		if ok, _ := path.Match(p.typ, name); ok {
			return true
		}
	}
	return false
}

func (t *ExpressionPointcut) MatchesMethod(method reflect.Method, typ reflect.Type) bool {
	name := typeName(typ)
	for _, p := range t.patterns {
		typeOk, _ := path.Match(p.typ, name)
		methodOk, _ := path.Match(p.method, method.Name)
		if typeOk && methodOk {
			return true
		}
	}
	return false
}
