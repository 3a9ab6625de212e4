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
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

var (
	intKinds   = []reflect.Kind{reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64}
	uintKinds  = []reflect.Kind{reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr}
	floatKinds = []reflect.Kind{reflect.Float32, reflect.Float64}

	DurationClass = reflect.TypeOf(time.Duration(0))
	StringClass   = reflect.TypeOf("")
)

/**
	Empty or blank strings convert to the zero value of the target type.
 */
func registerDefaults(s *Service) {
	for _, k := range intKinds {
		s.AddKind(reflect.String, k, StringToInt)
	}
	for _, k := range uintKinds {
		s.AddKind(reflect.String, k, StringToUint)
	}
	for _, k := range floatKinds {
		s.AddKind(reflect.String, k, StringToFloat)
	}
	s.AddKind(reflect.String, reflect.Bool, StringToBool)
	s.AddKind(reflect.String, reflect.Slice, StringToSlice(s))
	s.Add(StringClass, DurationClass, StringToDuration)

	numeric := append(append(append([]reflect.Kind(nil), intKinds...), uintKinds...), floatKinds...)
	for _, from := range numeric {
		s.AddKind(from, reflect.String, NumberToString)
		for _, to := range numeric {
			if from != to {
				s.AddKind(from, to, NumberToNumber)
			}
		}
	}
	s.AddKind(reflect.Bool, reflect.String, func(value interface{}, to reflect.Type) (interface{}, error) {
		return strconv.FormatBool(reflect.ValueOf(value).Bool()), nil
	})
}

func blank(value interface{}) (string, bool) {
	str := strings.TrimSpace(reflect.ValueOf(value).String())
	return str, str == ""
}

func StringToInt(value interface{}, to reflect.Type) (interface{}, error) {
	str, empty := blank(value)
	if empty {
		return reflect.Zero(to).Interface(), nil
	}
	n, err := strconv.ParseInt(str, 0, to.Bits())
	if err != nil {
		return nil, err
	}
	return reflect.ValueOf(n).Convert(to).Interface(), nil
}

func StringToUint(value interface{}, to reflect.Type) (interface{}, error) {
	str, empty := blank(value)
	if empty {
		return reflect.Zero(to).Interface(), nil
	}
	n, err := strconv.ParseUint(str, 0, to.Bits())
	if err != nil {
		return nil, err
	}
	return reflect.ValueOf(n).Convert(to).Interface(), nil
}

func StringToFloat(value interface{}, to reflect.Type) (interface{}, error) {
	str, empty := blank(value)
	if empty {
		return reflect.Zero(to).Interface(), nil
	}
	n, err := strconv.ParseFloat(str, to.Bits())
	if err != nil {
		return nil, err
	}
	return reflect.ValueOf(n).Convert(to).Interface(), nil
}

func StringToBool(value interface{}, to reflect.Type) (interface{}, error) {
	str, empty := blank(value)
	if empty {
		return reflect.Zero(to).Interface(), nil
	}
	b, err := strconv.ParseBool(str)
	if err != nil {
		return nil, err
	}
	return reflect.ValueOf(b).Convert(to).Interface(), nil
}

func StringToDuration(value interface{}, to reflect.Type) (interface{}, error) {
	str, empty := blank(value)
	if empty {
		return reflect.Zero(to).Interface(), nil
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		return nil, err
	}
	return d, nil
}

/**
	Comma separated list, each element converted with the service
 */
func StringToSlice(s *Service) Converter {
	return func(value interface{}, to reflect.Type) (interface{}, error) {
		str, empty := blank(value)
		out := reflect.MakeSlice(to, 0, 0)
		if empty {
			return out.Interface(), nil
		}
		for _, part := range strings.Split(str, ",") {
			elem, err := s.Convert(strings.TrimSpace(part), to.Elem())
			if err != nil {
				return nil, err
			}
			out = reflect.Append(out, reflect.ValueOf(elem))
		}
		return out.Interface(), nil
	}
}

func NumberToString(value interface{}, to reflect.Type) (interface{}, error) {
	v := reflect.ValueOf(value)
	var str string
	switch {
	case v.CanInt():
		str = strconv.FormatInt(v.Int(), 10)
	case v.CanUint():
		str = strconv.FormatUint(v.Uint(), 10)
	default:
		str = strconv.FormatFloat(v.Float(), 'g', -1, v.Type().Bits())
	}
	return reflect.ValueOf(str).Convert(to).Interface(), nil
}

/**
	Converts between numeric kinds, failing instead of wrapping around when the
	value does not fit the target or a float has a fractional part.
 */
func NumberToNumber(value interface{}, to reflect.Type) (interface{}, error) {
	v := reflect.ValueOf(value)
	target := reflect.New(to).Elem()
	fits := true
	switch {
	case hasKind(intKinds, v.Kind()):
		n := v.Int()
		switch {
		case hasKind(intKinds, to.Kind()):
			fits = !target.OverflowInt(n)
		case hasKind(uintKinds, to.Kind()):
			fits = n >= 0 && !target.OverflowUint(uint64(n))
		}
	case hasKind(uintKinds, v.Kind()):
		n := v.Uint()
		switch {
		case hasKind(intKinds, to.Kind()):
			fits = n <= math.MaxInt64 && !target.OverflowInt(int64(n))
		case hasKind(uintKinds, to.Kind()):
			fits = !target.OverflowUint(n)
		}
	case hasKind(floatKinds, v.Kind()):
		f := v.Float()
		if hasKind(floatKinds, to.Kind()) {
			fits = !target.OverflowFloat(f)
			break
		}
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f {
			return nil, errors.Errorf("value %v is not an integral number", value)
		}
		switch {
		case hasKind(intKinds, to.Kind()):
			fits = f >= math.MinInt64 && f < 1<<63 && !target.OverflowInt(int64(f))
		case hasKind(uintKinds, to.Kind()):
			fits = f >= 0 && f < 1<<64 && !target.OverflowUint(uint64(f))
		}
	}
	if !fits {
		return nil, errors.Errorf("value %v overflows '%v'", value, to)
	}
	return v.Convert(to).Interface(), nil
}

func hasKind(kinds []reflect.Kind, kind reflect.Kind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
