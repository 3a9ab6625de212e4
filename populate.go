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
	"reflect"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

/**
@author Alex Shvid
*/

func (t *DefaultBeanFactory) populateBean(name string, def *BeanDefinition, raw interface{}, chain *resolution) error {
	cont, err := t.processors.afterInstantiation(raw, name)
	if err != nil {
		return err
	}
	if !cont {
		t.log.Debug("population vetoed", zap.String("bean", name))
		return nil
	}
	pvs, err := t.processors.propertyValues(def.Properties.Copy(), raw, name)
	if err != nil {
		return err
	}
	return t.applyPropertyValues(name, raw, pvs, chain)
}

/**
	Sets each binding in order, stops on the first failure.
 */
func (t *DefaultBeanFactory) applyPropertyValues(name string, raw interface{}, pvs PropertyValues, chain *resolution) error {
	if len(pvs) == 0 {
		return nil
	}
	schema, err := t.schemas.schema(reflect.TypeOf(raw))
	if err != nil {
		return newBeanError(ErrInvalidDefinition, name, err)
	}
	value := reflect.ValueOf(raw).Elem()
	for _, pv := range pvs {
		prop, ok := schema.Property(pv.Name)
		if !ok {
			return newPropertyError(ErrInvalidDefinition, name, pv.Name, errors.Errorf("no bindable property in '%v'", schema.Type()))
		}
		v, err := t.resolveValue(name, prop, pv.Value, chain)
		if err != nil {
			return err
		}
		if err := prop.set(value, v); err != nil {
			return newPropertyError(ErrInvalidDefinition, name, pv.Name, err)
		}
	}
	return nil
}

func (t *DefaultBeanFactory) resolveValue(name string, prop *Property, value interface{}, chain *resolution) (reflect.Value, error) {
	switch ref := value.(type) {
	case BeanReference:
		return t.resolveReference(name, prop, ref.Name, chain)
	case *BeanReference:
		return t.resolveReference(name, prop, ref.Name, chain)
	}

	if value == nil {
		return reflect.Zero(prop.FieldType), nil
	}

	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(prop.FieldType) {
		return rv, nil
	}

	conv := t.Conversion()
	if conv == nil || !conv.CanConvert(rv.Type(), prop.FieldType) {
		return reflect.Value{}, newPropertyError(ErrConversion, name, prop.Name, errors.Errorf("no converter from '%v' to '%v'", rv.Type(), prop.FieldType))
	}
	out, err := conv.Convert(value, prop.FieldType)
	if err != nil {
		return reflect.Value{}, newPropertyError(ErrConversion, name, prop.Name, err)
	}
	if out == nil {
		return reflect.Zero(prop.FieldType), nil
	}
	ov := reflect.ValueOf(out)
	switch {
	case ov.Type().AssignableTo(prop.FieldType):
		return ov, nil
	case ov.Type().ConvertibleTo(prop.FieldType):
		return ov.Convert(prop.FieldType), nil
	}
	return reflect.Value{}, newPropertyError(ErrConversion, name, prop.Name, errors.Errorf("converter returned '%v' for '%v'", ov.Type(), prop.FieldType))
}

func (t *DefaultBeanFactory) resolveReference(name string, prop *Property, ref string, chain *resolution) (reflect.Value, error) {
	obj, err := t.doResolve(ref, chain)
	if err != nil {
		return reflect.Value{}, newPropertyError(ErrUnresolvedReference, name, prop.Name, errors.Wrapf(err, "reference '%s'", ref))
	}
	rv := reflect.ValueOf(obj)
	if !rv.Type().AssignableTo(prop.FieldType) {
		return reflect.Value{}, newPropertyError(ErrNotOfRequiredType, name, prop.Name, errors.Errorf("bean '%s' of type '%v' is not assignable to '%v'", ref, rv.Type(), prop.FieldType))
	}
	return rv, nil
}
