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
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

/**
@author Alex Shvid
*/

func stateOf(r *SingletonRegistry, name string) singletonState {
	s := r.slot(name, false)
	if s == nil {
		return stateAbsent
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func TestSingletonStates(t *testing.T) {

	r := NewSingletonRegistry()
	chain := newResolution()
	raw := &struct{ n int }{}
	early := &struct{ n int }{1}
	calls := 0

	obj, err := r.getOrCreate("x", chain, func() (interface{}, error) {
		require.Equal(t, stateCreating, stateOf(r, "x"))

		r.addFactory("x", func() (interface{}, error) {
			calls++
			return early, nil
		})
		require.Equal(t, stateFactory, stateOf(r, "x"))

		_, ok := r.Singleton("x")
		require.False(t, ok)

		got, ok, err := r.get("x", true)
		require.Nil(t, err)
		require.True(t, ok)
		require.Same(t, early, got)
		require.Equal(t, stateEarly, stateOf(r, "x"))

		got, _, _ = r.get("x", true)
		require.Same(t, early, got)
		require.Equal(t, 1, calls)

		sealed, ok := r.sealEarly("x")
		require.True(t, ok)
		require.Same(t, early, sealed)
		return sealed, nil
	})
	require.Nil(t, err)
	require.Same(t, early, obj)
	require.NotSame(t, raw, obj)
	require.Equal(t, stateFinished, stateOf(r, "x"))

	r.addFactory("x", func() (interface{}, error) {
		t.Fatal("factory registered after finish must never run")
		return nil, nil
	})
	got, ok := r.Singleton("x")
	require.True(t, ok)
	require.Same(t, early, got)

}

func TestSingletonSealDropsUnusedFactory(t *testing.T) {

	r := NewSingletonRegistry()
	_, err := r.getOrCreate("x", newResolution(), func() (interface{}, error) {
		r.addFactory("x", func() (interface{}, error) {
			return nil, errors.New("must not run")
		})
		_, ok := r.sealEarly("x")
		require.False(t, ok)
		require.Equal(t, stateCreating, stateOf(r, "x"))

		_, ok, err := r.get("x", true)
		require.Nil(t, err)
		require.False(t, ok)
		return &struct{}{}, nil
	})
	require.Nil(t, err)

}

func TestSingletonReentrance(t *testing.T) {

	r := NewSingletonRegistry()
	chain := newResolution()
	_, err := r.getOrCreate("x", chain, func() (interface{}, error) {
		return r.getOrCreate("x", chain, func() (interface{}, error) {
			return &struct{}{}, nil
		})
	})
	require.True(t, errors.Is(err, ErrCurrentlyInCreation))
	require.Equal(t, stateAbsent, stateOf(r, "x"))
	require.False(t, r.ContainsSingleton("x"))

}

func TestSingletonFailureRetry(t *testing.T) {

	r := NewSingletonRegistry()
	_, err := r.getOrCreate("x", newResolution(), func() (interface{}, error) {
		r.addFactory("x", func() (interface{}, error) {
			return "early", nil
		})
		_, _, _ = r.get("x", true)
		return nil, errors.New("boom")
	})
	require.NotNil(t, err)
	require.Equal(t, stateAbsent, stateOf(r, "x"))

	obj, err := r.getOrCreate("x", newResolution(), func() (interface{}, error) {
		return "done", nil
	})
	require.Nil(t, err)
	require.Equal(t, "done", obj)
	require.Equal(t, []string{"x"}, r.SingletonNames())

}

func TestSingletonDestroyOrder(t *testing.T) {

	r := NewSingletonRegistry()
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		require.Nil(t, r.RegisterSingleton(name, &struct{ name string }{name}))
		r.registerDisposable(name, func() error {
			order = append(order, name)
			if name == "b" {
				return errors.New("b failed")
			}
			return nil
		})
	}

	require.Nil(t, r.DestroySingleton("c"))
	require.Equal(t, []string{"c"}, order)
	require.False(t, r.ContainsSingleton("c"))

	err := r.DestroySingletons()
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "b failed")
	require.Equal(t, []string{"c", "b", "a"}, order)
	require.Equal(t, 0, r.SingletonCount())

}

func TestPrototypeCycleCheck(t *testing.T) {

	reg := newRegistry()
	proto := func(refs ...string) *BeanDefinition {
		def := NewDefinition(prototypeTestClass)
		def.Scope = ScopePrototype
		for i, ref := range refs {
			def.Properties = append(def.Properties, PropertyValue{Name: string(rune('a' + i)), Value: Ref(ref)})
		}
		return def
	}
	require.Nil(t, reg.register("p1", proto("p2")))
	require.Nil(t, reg.register("p2", proto("p3", "s")))
	require.Nil(t, reg.register("p3", proto("p1")))
	require.Nil(t, reg.register("s", NewDefinition(prototypeTestClass, PropertyValue{Name: "a", Value: Ref("p1")})))
	require.Nil(t, reg.register("leaf", proto()))

	single := func(refs ...string) *BeanDefinition {
		def := proto(refs...)
		def.Scope = ScopeSingleton
		return def
	}
	require.Nil(t, reg.register("loop", proto("hub")))
	require.Nil(t, reg.register("hub", single("loop")))
	require.Nil(t, reg.register("outer", proto("s1")))
	require.Nil(t, reg.register("s1", single("s2")))
	require.Nil(t, reg.register("s2", single("s1")))

	none := func(string) bool { return false }

	err := reg.checkPrototypeCycle("p1", none)
	require.True(t, errors.Is(err, ErrCurrentlyInCreation))
	require.Contains(t, err.Error(), "p1 -> p2 -> p3 -> p1")

	require.Nil(t, reg.checkPrototypeCycle("leaf", none))

	err = reg.checkPrototypeCycle("loop", none)
	require.True(t, errors.Is(err, ErrCurrentlyInCreation))
	require.Contains(t, err.Error(), "loop -> hub -> loop")

	require.Nil(t, reg.checkPrototypeCycle("loop", func(name string) bool { return name == "hub" }))
	require.Nil(t, reg.checkPrototypeCycle("outer", none))

}

type prototypeTest struct {
}

var prototypeTestClass = reflect.TypeOf((*prototypeTest)(nil))
