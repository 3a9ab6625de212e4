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

var AdvisorClass = reflect.TypeOf((*Advisor)(nil)).Elem()

/**
	Binding of a matcher and an advice.
 */
type Advisor interface {
	Matcher() Matcher

	/**
		MethodInterceptor, MethodBeforeAdvice or AfterReturningAdvice
	 */
	Advice() interface{}
}

type DefaultAdvisor struct {
	matcher Matcher
	advice  interface{}
}

func NewAdvisor(matcher Matcher, advice interface{}) *DefaultAdvisor {
	return &DefaultAdvisor{matcher: matcher, advice: advice}
}

func (t *DefaultAdvisor) Matcher() Matcher {
	return t.matcher
}

func (t *DefaultAdvisor) Advice() interface{} {
	return t.advice
}

/**
	Advisor configured by properties, usable from descriptors:

		- id: logAdvisor
		  class: aop.ExpressionAdvisor
		  properties:
		    - { name: expression, value: "*.userService.Get*" }
		    - { name: advice, ref: logAdvice }
 */
type ExpressionAdvisor struct {
	Expression  string      `bean:"expression"`
	Interceptor interface{} `bean:"advice"`

	once     sync.Once
	pointcut *ExpressionPointcut
	err      error
}

/**
	Nil when the expression is invalid
 */
func (t *ExpressionAdvisor) Matcher() Matcher {
	t.once.Do(func() {
		t.pointcut, t.err = NewExpressionPointcut(t.Expression)
	})
	if t.pointcut == nil {
		return nil
	}
	return t.pointcut
}

func (t *ExpressionAdvisor) Advice() interface{} {
	return t.Interceptor
}

/**
	Checks the configuration on initialization of the bean
 */
func (t *ExpressionAdvisor) PostConstruct() error {
	if t.Matcher() == nil {
		return t.err
	}
	if !isAdvice(t.Interceptor) {
		return errors.Wrapf(ErrUnsupportedAdvice, "advisor '%s' has advice '%T'", t.Expression, t.Interceptor)
	}
	return nil
}
