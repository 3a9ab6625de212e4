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

package convert

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

/**
	Converts value to the target type, the result must be assignable or convertible to it.
 */
type Converter func(value interface{}, to reflect.Type) (interface{}, error)

type typePair struct {
	from, to reflect.Type
}

type kindPair struct {
	from, to reflect.Kind
}

/**
	Service holds converters registered for exact type pairs and for kind pairs.
	Exact pairs win over kinds.
 */
type Service struct {
	mu    sync.RWMutex
	types map[typePair]Converter
	kinds map[kindPair]Converter
}

/**
	Service with the default converters
 */
func New() *Service {
	s := Empty()
	registerDefaults(s)
	return s
}

func Empty() *Service {
	return &Service{
		types: make(map[typePair]Converter),
		kinds: make(map[kindPair]Converter),
	}
}

func (s *Service) Add(from, to reflect.Type, conv Converter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[typePair{from, to}] = conv
}

func (s *Service) AddKind(from, to reflect.Kind, conv Converter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds[kindPair{from, to}] = conv
}

func (s *Service) find(from, to reflect.Type) (Converter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.types[typePair{from, to}]; ok {
		return c, true
	}
	c, ok := s.kinds[kindPair{from.Kind(), to.Kind()}]
	return c, ok
}

func (s *Service) CanConvert(from, to reflect.Type) bool {
	if from == nil || to == nil {
		return false
	}
	if from.AssignableTo(to) {
		return true
	}
	_, ok := s.find(from, to)
	return ok
}

func (s *Service) Convert(value interface{}, to reflect.Type) (interface{}, error) {
	if value == nil {
		return reflect.Zero(to).Interface(), nil
	}
	from := reflect.TypeOf(value)
	if from.AssignableTo(to) {
		return value, nil
	}
	conv, ok := s.find(from, to)
	if !ok {
		return nil, errors.Errorf("no converter from '%v' to '%v'", from, to)
	}
	out, err := conv(value, to)
	if err != nil {
		return nil, errors.Wrapf(err, "convert '%v' to '%v'", value, to)
	}
	return cast(out, to)
}

func cast(out interface{}, to reflect.Type) (interface{}, error) {
	if out == nil {
		return reflect.Zero(to).Interface(), nil
	}
	v := reflect.ValueOf(out)
	switch {
	case v.Type() == to:
		return out, nil
	case v.Type().ConvertibleTo(to):
		return v.Convert(to).Interface(), nil
	case v.Type().AssignableTo(to):
		return out, nil
	}
	return nil, errors.Errorf("converter produced '%v' instead of '%v'", v.Type(), to)
}
