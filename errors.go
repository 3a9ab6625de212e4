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
	"strings"

	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

var (
	ErrNoSuchBean          = errors.New("no such bean definition")
	ErrDuplicateBean       = errors.New("duplicate bean name")
	ErrInvalidDefinition   = errors.New("invalid bean definition")
	ErrUnsupportedScope    = errors.New("unsupported scope")
	ErrUnresolvedReference = errors.New("unresolved bean reference")
	ErrCurrentlyInCreation = errors.New("bean is currently in creation")
	ErrConversion          = errors.New("property conversion failed")
	ErrInconsistentProxy   = errors.New("early reference differs from final bean")
	ErrBeanCreation        = errors.New("bean creation failed")
	ErrNotOfRequiredType   = errors.New("bean is not of required type")
)

/**
	BeanError carries the bean and property that failed, the error kind
	(one of the Err* values above) and the underlying cause.

	errors.Is(err, ErrConversion) matches on the kind.
 */
type BeanError struct {
	Bean     string
	Property string
	Kind     error
	Err      error
}

func (e *BeanError) Error() string {
	var out strings.Builder
	out.WriteString(e.Kind.Error())
	if e.Bean != "" {
		out.WriteString(" [bean '")
		out.WriteString(e.Bean)
		out.WriteString("'")
		if e.Property != "" {
			out.WriteString(", property '")
			out.WriteString(e.Property)
			out.WriteString("'")
		}
		out.WriteString("]")
	}
	if e.Err != nil {
		out.WriteString(": ")
		out.WriteString(e.Err.Error())
	}
	return out.String()
}

func (e *BeanError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newBeanError(kind error, bean string, cause error) error {
	return &BeanError{Bean: bean, Kind: kind, Err: cause}
}

func newPropertyError(kind error, bean, property string, cause error) error {
	return &BeanError{Bean: bean, Property: property, Kind: kind, Err: cause}
}

// creationError wraps any failure below the pipeline, keeping typed errors as they are.
func creationError(bean string, err error) error {
	var be *BeanError
	if errors.As(err, &be) {
		return err
	}
	return newBeanError(ErrBeanCreation, bean, err)
}
