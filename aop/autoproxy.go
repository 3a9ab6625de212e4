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

	"github.com/consensusdb/beans"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

/**
@author Alex Shvid
*/

/**
	AutoProxyCreator is a post-processor that wraps every bean whose type is
	accepted by one of the Advisor beans of the factory. The first matching
	advisor in registration order wins.

	A bean handed out early to a circular dependency is wrapped at that point,
	the after-initialization pass then keeps that same instance as is so the
	factory caches the same proxy. Any other instance of the name is wrapped.
 */
type AutoProxyCreator struct {
	Templates       *Templates `bean:"templates"`
	ProxyTargetType bool       `bean:"proxyTargetType"`

	Log *zap.Logger `bean:"-"`

	factory beans.ListableBeanFactory

	/**
		Raw instances wrapped through the early reference, key is bean name
	 */
	early sync.Map
}

func NewAutoProxyCreator(templates *Templates, log *zap.Logger) *AutoProxyCreator {
	return &AutoProxyCreator{Templates: templates, Log: log}
}

func (t *AutoProxyCreator) SetBeanFactory(factory beans.BeanFactory) error {
	lf, ok := factory.(beans.ListableBeanFactory)
	if !ok {
		return errors.Errorf("auto-proxy creator requires listable bean factory, got '%T'", factory)
	}
	t.factory = lf
	return nil
}

func (t *AutoProxyCreator) logger() *zap.Logger {
	if t.Log == nil {
		return zap.NewNop()
	}
	return t.Log
}

func (t *AutoProxyCreator) EarlyBeanReference(bean interface{}, name string) (interface{}, error) {
	t.early.Store(name, bean)
	return t.wrapIfNecessary(bean, name)
}

func (t *AutoProxyCreator) PostProcessAfterInitialization(bean interface{}, name string) (interface{}, error) {
	if early, wrapped := t.early.LoadAndDelete(name); wrapped && sameInstance(early, bean) {
		return bean, nil
	}
	return t.wrapIfNecessary(bean, name)
}

func (t *AutoProxyCreator) PostProcessFailedCreation(name string) {
	t.early.Delete(name)
}

func sameInstance(a, b interface{}) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil || !ta.Comparable() {
		return false
	}
	return a == b
}

func (t *AutoProxyCreator) wrapIfNecessary(bean interface{}, name string) (interface{}, error) {
	if isInfrastructure(bean) {
		return bean, nil
	}
	typ := reflect.TypeOf(bean)
	advisors, err := t.advisors()
	if err != nil {
		return nil, err
	}
	for _, advisor := range advisors {
		matcher := advisor.Matcher()
		if matcher == nil || !matcher.MatchesType(typ) {
			continue
		}
		interceptor, err := Interceptor(advisor.Advice())
		if err != nil {
			return nil, err
		}
		proxy, err := NewProxyFactory(t.Templates).Proxy(&AdvisedSupport{
			Target:          bean,
			Matcher:         matcher,
			Interceptor:     interceptor,
			ProxyTargetType: t.ProxyTargetType,
		})
		if err != nil {
			return nil, err
		}
		t.logger().Debug("proxy created", zap.String("bean", name), zap.Stringer("target", typ), zap.String("proxy", reflect.TypeOf(proxy).String()))
		return proxy, nil
	}
	return bean, nil
}

/**
	Advisor beans of the factory, skipping the ones that are still being built
 */
func (t *AutoProxyCreator) advisors() ([]Advisor, error) {
	if t.factory == nil {
		return nil, errors.New("auto-proxy creator has no bean factory")
	}
	creation, _ := t.factory.(interface {
		IsCurrentlyInCreation(name string) bool
	})
	var list []Advisor
	for _, name := range t.factory.BeanNamesForType(AdvisorClass) {
		if creation != nil && creation.IsCurrentlyInCreation(name) {
			continue
		}
		obj, err := t.factory.Resolve(name)
		if err != nil {
			return nil, errors.Wrapf(err, "advisor '%s'", name)
		}
		if advisor, ok := obj.(Advisor); ok {
			list = append(list, advisor)
		}
	}
	return list, nil
}

/**
	Types that configure proxying are never proxied themselves
 */
func isInfrastructure(bean interface{}) bool {
	switch bean.(type) {
	case Advisor, Matcher, *Templates, *ProxyFactory, *beans.BeanDefinition:
		return true
	}
	return isAdvice(bean) || beans.IsBeanPostProcessor(bean)
}
