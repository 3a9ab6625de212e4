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
	"reflect"

	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

type dispatch struct {
	method  reflect.Method
	bound   reflect.Value
	matched bool
}

/**
	Handler dispatches calls of a proxy template to the target.
	Matched methods go through the interceptor, others are direct calls.
 */
type Handler struct {
	target      interface{}
	typ         reflect.Type
	interceptor MethodInterceptor
	methods     map[string]*dispatch
}

func newHandler(target interface{}, matcher Matcher, interceptor MethodInterceptor) *Handler {
	value := reflect.ValueOf(target)
	typ := value.Type()
	h := &Handler{
		target:      target,
		typ:         typ,
		interceptor: interceptor,
		methods:     make(map[string]*dispatch, typ.NumMethod()),
	}
	for i := 0; i < typ.NumMethod(); i++ {
		m := typ.Method(i)
		h.methods[m.Name] = &dispatch{
			method:  m,
			bound:   value.Method(i),
			matched: matcher != nil && matcher.MatchesMethod(m, typ),
		}
	}
	return h
}

/**
	Target of the proxy
 */
func (h *Handler) Target() interface{} {
	return h.target
}

func (h *Handler) Matches(method string) bool {
	d, ok := h.methods[method]
	return ok && d.matched
}

/**
	Calls the method by name. Variadic arguments are passed as one slice.
	Panics with *ProxyError when the target has no such method or the
	arguments do not fit, both are template bugs.
 */
func (h *Handler) Invoke(method string, args ...interface{}) []interface{} {
	d, ok := h.methods[method]
	if !ok {
		panic(&ProxyError{Type: h.typ, Method: method, Kind: ErrNoSuchMethod})
	}
	if !d.matched || h.interceptor == nil {
		return call(h.typ, d, args)
	}
	return h.interceptor.Invoke(&invocation{handler: h, dispatch: d, args: args})
}

func call(typ reflect.Type, d *dispatch, args []interface{}) []interface{} {
	ft := d.bound.Type()
	if len(args) != ft.NumIn() {
		panic(&ProxyError{Type: typ, Method: d.method.Name, Kind: ErrNoSuchMethod, Err: errors.Errorf("expected %d arguments, got %d", ft.NumIn(), len(args))})
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		if a == nil {
			in[i] = reflect.Zero(ft.In(i))
		} else {
			in[i] = reflect.ValueOf(a)
		}
	}
	var out []reflect.Value
	if ft.IsVariadic() {
		out = d.bound.CallSlice(in)
	} else {
		out = d.bound.Call(in)
	}
	results := make([]interface{}, len(out))
	for i, v := range out {
		results[i] = v.Interface()
	}
	return results
}

type invocation struct {
	handler  *Handler
	dispatch *dispatch
	args     []interface{}
}

func (t *invocation) Method() reflect.Method {
	return t.dispatch.method
}

func (t *invocation) Arguments() []interface{} {
	return t.args
}

func (t *invocation) This() interface{} {
	return t.handler.target
}

func (t *invocation) Proceed() []interface{} {
	return call(t.handler.typ, t.dispatch, t.args)
}

/**
	Typed result for proxy templates, nil gives the zero value.
 */
func Result[T any](results []interface{}, i int) T {
	var zero T
	if i >= len(results) || results[i] == nil {
		return zero
	}
	return results[i].(T)
}

/**
	Error result for proxy templates.
 */
func Error(results []interface{}, i int) error {
	return Result[error](results, i)
}
