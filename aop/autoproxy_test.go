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

package aop_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/consensusdb/beans"
	"github.com/consensusdb/beans/aop"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

/**
@author Alex Shvid
*/

type Greeter interface {
	Greet(name string) string
}

type Partner interface {
	Name() string
}

var (
	GreeterClass = reflect.TypeOf((*Greeter)(nil)).Elem()
	PartnerClass = reflect.TypeOf((*Partner)(nil)).Elem()
)

type greeter struct {
	Partner Partner `bean:"partner"`
}

func (t *greeter) Greet(name string) string {
	return "hello " + name + " from " + t.Partner.Name()
}

type partner struct {
	Greeter Greeter `bean:"greeter"`
}

func (t *partner) Name() string {
	return "partner"
}

type greeterProxy struct {
	h *aop.Handler
}

func (p *greeterProxy) Greet(name string) string {
	return aop.Result[string](p.h.Invoke("Greet", name), 0)
}

var (
	greeterClass           = reflect.TypeOf((*greeter)(nil))
	partnerClass           = reflect.TypeOf((*partner)(nil))
	autoProxyCreatorClass  = reflect.TypeOf((*aop.AutoProxyCreator)(nil))
	expressionAdvisorClass = reflect.TypeOf((*aop.ExpressionAdvisor)(nil))
	aroundClass            = reflect.TypeOf((*around)(nil))
)

func greeterTemplates(t *testing.T) *aop.Templates {
	templates := aop.NewTemplates()
	require.Nil(t, templates.RegisterInterface(GreeterClass, func(h *aop.Handler) interface{} {
		return &greeterProxy{h}
	}))
	return templates
}

func prop(name string, value interface{}) beans.PropertyValue {
	return beans.PropertyValue{Name: name, Value: value}
}

func circle(t *testing.T, factory *beans.DefaultBeanFactory) {
	require.Nil(t, factory.RegisterDefinition("greeter", beans.NewDefinition(greeterClass, prop("partner", beans.Ref("partner")))))
	require.Nil(t, factory.RegisterDefinition("partner", beans.NewDefinition(partnerClass, prop("greeter", beans.Ref("greeter")))))
}

func TestAutoProxyWithCircularReference(t *testing.T) {

	factory := beans.NewFactory(beans.WithFactoryLogger(zaptest.NewLogger(t)))
	circle(t, factory)

	j := new(journal)
	require.Nil(t, factory.RegisterSingleton("advisor", aop.NewAdvisor(
		aop.NewMatcher(aop.TypeIs(GreeterClass), aop.MethodNames("Greet")), j.interceptor())))

	creator := aop.NewAutoProxyCreator(greeterTemplates(t), zaptest.NewLogger(t))
	require.Nil(t, creator.SetBeanFactory(factory))
	require.Nil(t, factory.AddBeanPostProcessor(creator))

	obj, err := factory.Resolve("greeter")
	require.Nil(t, err)
	proxy, ok := obj.(*greeterProxy)
	require.True(t, ok)

	obj, err = factory.Resolve("partner")
	require.Nil(t, err)
	p := obj.(*partner)
	require.Same(t, proxy, p.Greeter)

	again, err := factory.Resolve("greeter")
	require.Nil(t, err)
	require.Same(t, proxy, again)

	require.Equal(t, "hello bob from partner", p.Greeter.Greet("bob"))
	require.Equal(t, []string{"enter Greet", "exit Greet"}, j.events)

}

type limitedGreeter struct {
	Partner Partner `bean:"partner"`
	Limit   int     `bean:"limit"`
}

func (t *limitedGreeter) Greet(name string) string {
	return "hello " + name
}

var limitedGreeterClass = reflect.TypeOf((*limitedGreeter)(nil))

func TestAutoProxyAfterFailedCreation(t *testing.T) {

	factory := beans.NewFactory(beans.WithFactoryLogger(zaptest.NewLogger(t)), beans.WithOverriding(true))
	require.Nil(t, factory.RegisterDefinition("greeter", beans.NewDefinition(limitedGreeterClass,
		prop("partner", beans.Ref("partner")),
		prop("limit", []string{"not", "a", "number"}))))
	require.Nil(t, factory.RegisterDefinition("partner", beans.NewDefinition(partnerClass, prop("greeter", beans.Ref("greeter")))))

	j := new(journal)
	require.Nil(t, factory.RegisterSingleton("advisor", aop.NewAdvisor(aop.NewMatcher(aop.TypeIs(GreeterClass), nil), j.interceptor())))
	creator := aop.NewAutoProxyCreator(greeterTemplates(t), zaptest.NewLogger(t))
	require.Nil(t, creator.SetBeanFactory(factory))
	require.Nil(t, factory.AddBeanPostProcessor(creator))

	_, err := factory.Resolve("greeter")
	require.NotNil(t, err)
	require.False(t, factory.ContainsSingleton("greeter"))

	require.Nil(t, factory.RegisterDefinition("greeter", beans.NewDefinition(limitedGreeterClass, prop("limit", 3))))

	obj, err := factory.Resolve("greeter")
	require.Nil(t, err)
	proxy, ok := obj.(*greeterProxy)
	require.True(t, ok)
	require.Equal(t, "hello bob", proxy.Greet("bob"))
	require.Equal(t, []string{"enter Greet", "exit Greet"}, j.events)

}

func TestAutoProxyWithoutCycle(t *testing.T) {

	factory := beans.NewFactory(beans.WithFactoryLogger(zaptest.NewLogger(t)))
	require.Nil(t, factory.RegisterDefinition("partner", beans.NewDefinition(partnerClass)))
	require.Nil(t, factory.RegisterDefinition("greeter", beans.NewDefinition(greeterClass, prop("partner", beans.Ref("partner")))))

	j := new(journal)
	require.Nil(t, factory.RegisterSingleton("advisor", aop.NewAdvisor(aop.NewMatcher(aop.TypeIs(GreeterClass), nil), j.interceptor())))
	creator := aop.NewAutoProxyCreator(greeterTemplates(t), nil)
	require.Nil(t, creator.SetBeanFactory(factory))
	require.Nil(t, factory.AddBeanPostProcessor(creator))

	obj, err := factory.Resolve("greeter")
	require.Nil(t, err)
	require.Equal(t, "hello ann from partner", obj.(Greeter).Greet("ann"))
	_, isRaw := obj.(*greeter)
	require.False(t, isRaw)

	obj, err = factory.Resolve("partner")
	require.Nil(t, err)
	_, isRaw = obj.(*partner)
	require.True(t, isRaw)

	require.Equal(t, []string{"enter Greet", "exit Greet"}, j.events)

}

func TestAutoProxyErrors(t *testing.T) {

	factory := beans.NewFactory()
	creator := aop.NewAutoProxyCreator(greeterTemplates(t), nil)
	require.NotNil(t, creator.SetBeanFactory(struct{ beans.BeanFactory }{factory}))

	_, err := creator.PostProcessAfterInitialization(new(partner), "partner")
	require.NotNil(t, err)

	require.Nil(t, creator.SetBeanFactory(factory))
	require.Nil(t, factory.RegisterSingleton("advisor", aop.NewAdvisor(aop.NewMatcher(nil, nil), struct{}{})))
	_, err = creator.PostProcessAfterInitialization(new(partner), "partner")
	require.True(t, errors.Is(err, aop.ErrUnsupportedAdvice))

	advisor, err := creator.PostProcessAfterInitialization(aop.NewAdvisor(nil, nil), "other")
	require.Nil(t, err)
	require.NotNil(t, advisor)

}

func TestExpressionAdvisorInContext(t *testing.T) {

	ctx, err := beans.Create(
		beans.WithLogger(zaptest.NewLogger(t)),
		beans.WithSingleton("templates", greeterTemplates(t)),
		beans.WithDefinition("autoProxy", beans.NewDefinition(autoProxyCreatorClass, prop("templates", beans.Ref("templates")))),
		beans.WithDefinition("advice", beans.NewDefinition(aroundClass)),
		beans.WithDefinition("advisor", beans.NewDefinition(expressionAdvisorClass,
			prop("expression", "*.greeter.Greet"),
			prop("advice", beans.Ref("advice")))),
		beans.WithDefinition("greeter", beans.NewDefinition(greeterClass, prop("partner", beans.Ref("partner")))),
		beans.WithDefinition("partner", beans.NewDefinition(partnerClass, prop("greeter", beans.Ref("greeter")))),
	)
	require.Nil(t, err)
	defer ctx.Close()

	g := ctx.MustBean(GreeterClass).(Greeter)
	_, isProxy := g.(*greeterProxy)
	require.True(t, isProxy)

	obj, err := ctx.Lookup("partner")
	require.Nil(t, err)
	require.Same(t, g, obj.(*partner).Greeter)

	require.Equal(t, "hello eve from partner", g.Greet("eve"))

	obj, err = ctx.Lookup("advice")
	require.Nil(t, err)
	advice := obj.(*around)
	require.Equal(t, []string{"Greet"}, advice.methods)
	require.Equal(t, [][]interface{}{{"hello eve from partner"}}, advice.results)

}

func TestExpressionAdvisorValidation(t *testing.T) {

	_, err := beans.Create(
		beans.WithDefinition("advisor", beans.NewDefinition(expressionAdvisorClass, prop("expression", "broken"))),
	)
	require.NotNil(t, err)

	_, err = beans.Create(
		beans.WithDefinition("advisor", beans.NewDefinition(expressionAdvisorClass, prop("expression", "*.greeter.Greet"))),
	)
	require.True(t, errors.Is(err, aop.ErrUnsupportedAdvice))

	advisor := &aop.ExpressionAdvisor{Expression: "*.greeter.*", Interceptor: new(before)}
	require.Nil(t, advisor.PostConstruct())
	require.True(t, advisor.Matcher().MatchesType(greeterClass))
	require.False(t, advisor.Matcher().MatchesType(partnerClass))

}
