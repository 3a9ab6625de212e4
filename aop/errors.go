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
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

var (
	ErrNotExtensible       = errors.New("type is not extensible")
	ErrNoInterfaces        = errors.New("no proxy template for interfaces")
	ErrAmbiguousInterfaces = errors.New("ambiguous proxy interfaces")
	ErrUnsupportedAdvice   = errors.New("unsupported advice")
	ErrNoSuchMethod        = errors.New("no such method")
)

/**
	ProxyError reports the type and, when known, the method that could not be proxied.
 */
type ProxyError struct {
	Type   reflect.Type
	Method string
	Kind   error
	Err    error
}

func (e *ProxyError) Error() string {
	msg := fmt.Sprintf("%v [type '%v'", e.Kind, e.Type)
	if e.Method != "" {
		msg += fmt.Sprintf(", method '%s'", e.Method)
	}
	msg += "]"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProxyError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func proxyError(kind error, typ reflect.Type, format string, args ...interface{}) error {
	return &ProxyError{Type: typ, Kind: kind, Err: errors.Errorf(format, args...)}
}
