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
	"sync"

	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

/**
	Builds the proxy object around the handler. Templates are forwarding
	wrappers written at compile time, for example:

		type greeterProxy struct {
			h *aop.Handler
		}

		func (p *greeterProxy) Greet(name string) string {
			return aop.Result[string](p.h.Invoke("Greet", name), 0)
		}

		templates.RegisterInterface(GreeterClass, func(h *aop.Handler) interface{} {
			return &greeterProxy{h}
		})
 */
type Template func(h *Handler) interface{}

/**
	Templates registry, one template per interface and per concrete type.

	Interface templates produce proxies that implement the interface only, callers
	can not cast them back to the concrete type of the target.
	Class templates embed the concrete type and override the intercepted methods,
	the proxy has the whole method set of the target, but it is still a different
	Go type and is not assignable to the target pointer type.
 */
type Templates struct {
	mu         sync.RWMutex
	interfaces map[reflect.Type]Template
	order      []reflect.Type
	classes    map[reflect.Type]Template
}

func NewTemplates() *Templates {
	return &Templates{
		interfaces: make(map[reflect.Type]Template),
		classes:    make(map[reflect.Type]Template),
	}
}

func (t *Templates) RegisterInterface(iface reflect.Type, tpl Template) error {
	if iface == nil || iface.Kind() != reflect.Interface {
		return errors.Errorf("interface type expected, got '%v'", iface)
	}
	if iface.NumMethod() == 0 {
		return errors.Errorf("interface '%v' has no methods", iface)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.interfaces == nil {
		t.interfaces = make(map[reflect.Type]Template)
	}
	if _, ok := t.interfaces[iface]; !ok {
		t.order = append(t.order, iface)
	}
	t.interfaces[iface] = tpl
	return nil
}

func (t *Templates) RegisterClass(classPtr reflect.Type, tpl Template) error {
	if classPtr == nil || classPtr.Kind() != reflect.Ptr || classPtr.Elem().Kind() != reflect.Struct {
		return errors.Errorf("pointer to struct expected, got '%v'", classPtr)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.classes == nil {
		t.classes = make(map[reflect.Type]Template)
	}
	t.classes[classPtr] = tpl
	return nil
}

/**
	Registered interfaces that typ implements, in registration order
 */
func (t *Templates) Implemented(typ reflect.Type) []reflect.Type {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var list []reflect.Type
	for _, iface := range t.order {
		if typ.Implements(iface) {
			list = append(list, iface)
		}
	}
	return list
}

func (t *Templates) interfaceTemplate(iface reflect.Type) (Template, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tpl, ok := t.interfaces[iface]
	return tpl, ok
}

func (t *Templates) classTemplate(classPtr reflect.Type) (Template, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tpl, ok := t.classes[classPtr]
	return tpl, ok
}

/**
	Configuration of one proxy.
 */
type AdvisedSupport struct {
	Target      interface{}
	Matcher     Matcher
	Interceptor MethodInterceptor

	/**
		Capability set of the proxy, derived from the registered interface templates when empty
	 */
	Interfaces []reflect.Type

	/**
		Forces the class strategy
	 */
	ProxyTargetType bool
}

type ProxyFactory struct {
	Templates *Templates
}

func NewProxyFactory(templates *Templates) *ProxyFactory {
	return &ProxyFactory{Templates: templates}
}

/**
	Uses the class strategy when it is forced or the target has no known
	interfaces, otherwise the interface strategy.
 */
func (t *ProxyFactory) Proxy(advised *AdvisedSupport) (interface{}, error) {
	if advised == nil || advised.Target == nil {
		return nil, errors.New("proxy target is not set")
	}
	if t.Templates == nil {
		return nil, errors.New("proxy templates are not set")
	}
	typ := reflect.TypeOf(advised.Target)
	interfaces := advised.Interfaces
	if len(interfaces) == 0 {
		interfaces = t.Templates.Implemented(typ)
	}
	if advised.ProxyTargetType || len(interfaces) == 0 {
		return t.classProxy(typ, advised)
	}
	return t.interfaceProxy(typ, interfaces, advised)
}

func (t *ProxyFactory) classProxy(typ reflect.Type, advised *AdvisedSupport) (interface{}, error) {
	if typ.Kind() != reflect.Ptr || typ.Elem().Kind() != reflect.Struct {
		return nil, proxyError(ErrNotExtensible, typ, "only pointers to structs can be embedded")
	}
	tpl, ok := t.Templates.classTemplate(typ)
	if !ok {
		return nil, proxyError(ErrNotExtensible, typ, "no class template registered")
	}
	return tpl(newHandler(advised.Target, advised.Matcher, advised.Interceptor)), nil
}

func (t *ProxyFactory) interfaceProxy(typ reflect.Type, interfaces []reflect.Type, advised *AdvisedSupport) (interface{}, error) {
	for _, iface := range interfaces {
		if iface.Kind() != reflect.Interface || !typ.Implements(iface) {
			return nil, proxyError(ErrNoInterfaces, typ, "target does not implement '%v'", iface)
		}
	}
	required := maximal(interfaces)

	var candidates []reflect.Type
	for _, iface := range t.Templates.Implemented(typ) {
		if coversAll(iface, required) {
			candidates = append(candidates, iface)
		}
	}
	candidates = minimal(candidates)
	switch len(candidates) {
	case 0:
		if len(required) > 1 {
			return nil, proxyError(ErrAmbiguousInterfaces, typ, "no template covers all of %v", required)
		}
		return nil, proxyError(ErrNoInterfaces, typ, "no template registered for %v", required)
	case 1:
	default:
		return nil, proxyError(ErrAmbiguousInterfaces, typ, "templates %v all cover %v", candidates, required)
	}

	tpl, _ := t.Templates.interfaceTemplate(candidates[0])
	proxy := tpl(newHandler(advised.Target, advised.Matcher, advised.Interceptor))
	if proxy == nil || !reflect.TypeOf(proxy).Implements(candidates[0]) {
		return nil, proxyError(ErrNoInterfaces, typ, "template for '%v' returned '%T'", candidates[0], proxy)
	}
	return proxy, nil
}

func coversAll(iface reflect.Type, list []reflect.Type) bool {
	for _, other := range list {
		if !iface.Implements(other) {
			return false
		}
	}
	return true
}

/**
	Drops interfaces that are embedded in another one of the list
 */
func maximal(list []reflect.Type) []reflect.Type {
	var out []reflect.Type
	for i, a := range list {
		covered := false
		for j, b := range list {
			if i != j && b.Implements(a) && (!a.Implements(b) || j < i) {
				covered = true
				break
			}
		}
		if !covered && !containsType(out, a) {
			out = append(out, a)
		}
	}
	return out
}

/**
	Keeps the narrowest interfaces of the list
 */
func minimal(list []reflect.Type) []reflect.Type {
	var out []reflect.Type
	for i, a := range list {
		wider := false
		for j, b := range list {
			if i != j && a.Implements(b) && (!b.Implements(a) || j < i) {
				wider = true
				break
			}
		}
		if !wider {
			out = append(out, a)
		}
	}
	return out
}

func containsType(list []reflect.Type, typ reflect.Type) bool {
	for _, t := range list {
		if t == typ {
			return true
		}
	}
	return false
}
