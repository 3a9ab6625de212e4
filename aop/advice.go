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
)

/**
@author Alex Shvid
*/

/**
	Call of the intercepted method.
 */
type MethodInvocation interface {

	/**
		Method of the target type
	 */
	Method() reflect.Method

	/**
		Call arguments, an interceptor may change them before Proceed
	 */
	Arguments() []interface{}

	/**
		Target object
	 */
	This() interface{}

	/**
		Calls the target method with the current arguments and returns its results.
		May be called any number of times.
	 */
	Proceed() []interface{}
}

/**
	Interception behavior, the returned results go to the caller as they are.
 */
type MethodInterceptor interface {
	Invoke(inv MethodInvocation) []interface{}
}

type MethodInterceptorFunc func(inv MethodInvocation) []interface{}

func (f MethodInterceptorFunc) Invoke(inv MethodInvocation) []interface{} {
	return f(inv)
}

type MethodBeforeAdvice interface {
	Before(method reflect.Method, args []interface{}, target interface{})
}

type AfterReturningAdvice interface {

	/**
		Observes the results, it can not replace them
	 */
	AfterReturning(results []interface{}, method reflect.Method, args []interface{}, target interface{})
}

type beforeInterceptor struct {
	advice MethodBeforeAdvice
}

func (t beforeInterceptor) Invoke(inv MethodInvocation) []interface{} {
	t.advice.Before(inv.Method(), inv.Arguments(), inv.This())
	return inv.Proceed()
}

type afterReturningInterceptor struct {
	advice AfterReturningAdvice
}

func (t afterReturningInterceptor) Invoke(inv MethodInvocation) []interface{} {
	results := inv.Proceed()
	t.advice.AfterReturning(results, inv.Method(), inv.Arguments(), inv.This())
	return results
}

type aroundInterceptor struct {
	before MethodBeforeAdvice
	after  AfterReturningAdvice
}

func (t aroundInterceptor) Invoke(inv MethodInvocation) []interface{} {
	t.before.Before(inv.Method(), inv.Arguments(), inv.This())
	results := inv.Proceed()
	t.after.AfterReturning(results, inv.Method(), inv.Arguments(), inv.This())
	return results
}

/**
	Adapts any supported advice to MethodInterceptor.
 */
func Interceptor(advice interface{}) (MethodInterceptor, error) {
	if mi, ok := advice.(MethodInterceptor); ok {
		return mi, nil
	}
	before, isBefore := advice.(MethodBeforeAdvice)
	after, isAfter := advice.(AfterReturningAdvice)
	switch {
	case isBefore && isAfter:
		return aroundInterceptor{before: before, after: after}, nil
	case isBefore:
		return beforeInterceptor{advice: before}, nil
	case isAfter:
		return afterReturningInterceptor{advice: after}, nil
	}
	return nil, proxyError(ErrUnsupportedAdvice, reflect.TypeOf(advice), "advice '%T' implements neither interceptor nor before/after advice", advice)
}

func isAdvice(obj interface{}) bool {
	switch obj.(type) {
	case MethodInterceptor, MethodBeforeAdvice, AfterReturningAdvice:
		return true
	}
	return false
}
