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
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

const (
	propertyTag = "bean"
	injectTag   = "inject"
)

/**
	Bindable field of the struct
 */
type Property struct {

	/**
		Property name used by definitions, matched case-insensitively
	 */
	Name string

	/**
		Field number of that struct
	 */
	FieldNum int

	/**
		Field name where the value is going to be set
	 */
	FieldName string

	/**
		Declared type of the field
	 */
	FieldType reflect.Type
}

/**
	Field that Context.Inject fills on runtime
 */
type injectionDef struct {

	/**
		Class of that struct
	 */
	class reflect.Type

	fieldNum  int
	fieldName string
	fieldType reflect.Type

	/**
		Bean name from `inject:"name"`, empty means lookup by type
	 */
	qualifier string
}

/**
	Schema declares the bindable properties of one struct type.
	It is either scanned from struct tags or registered explicitly.
 */
type Schema struct {

	/**
		Class of the pointer to the struct
	 */
	classPtr reflect.Type

	/**
		Anonymous fields expose their interfaces though bean itself.
		This is confusing on injection, because this bean is an encapsulator, not an implementation.
	 */
	notImplements []reflect.Type

	properties map[string]*Property
	order      []*Property

	injects []*injectionDef
}

/**
	Declares a schema from property name to field name pairs, fields
	that are not listed are not bindable.
 */
func NewSchema(classPtr reflect.Type, fields map[string]string) (*Schema, error) {
	if classPtr == nil || classPtr.Kind() != reflect.Ptr || classPtr.Elem().Kind() != reflect.Struct {
		return nil, errors.Errorf("schema requires pointer to struct, got '%v'", classPtr)
	}
	s := &Schema{classPtr: classPtr, properties: make(map[string]*Property)}
	class := classPtr.Elem()
	for name, fieldName := range fields {
		field, ok := class.FieldByName(fieldName)
		if !ok || len(field.Index) != 1 {
			return nil, errors.Errorf("field '%s' not found in class '%v'", fieldName, class)
		}
		if field.PkgPath != "" {
			return nil, errors.Errorf("field '%s' in class '%v' is not public", fieldName, class)
		}
		s.add(&Property{Name: name, FieldNum: field.Index[0], FieldName: field.Name, FieldType: field.Type})
	}
	return s, nil
}

func (t *Schema) add(p *Property) {
	key := strings.ToLower(p.Name)
	if _, ok := t.properties[key]; ok {
		return
	}
	t.properties[key] = p
	t.order = append(t.order, p)
}

func (t *Schema) Type() reflect.Type {
	return t.classPtr
}

func (t *Schema) Property(name string) (*Property, bool) {
	p, ok := t.properties[strings.ToLower(name)]
	return p, ok
}

func (t *Schema) Properties() []*Property {
	return t.order
}

/**
	Check if the class can implement interface type, ignoring the promoted methods of anonymous fields
 */
func (t *Schema) implements(ifaceType reflect.Type) bool {
	for _, ni := range t.notImplements {
		if ni == ifaceType {
			return false
		}
	}
	return t.classPtr.Implements(ifaceType)
}

/**
	Scans exported fields of the struct. The property name is taken from
	the `bean:"name"` tag or the field name, `bean:"-"` hides the field.
 */
func investigate(classPtr reflect.Type) (*Schema, error) {
	if classPtr.Kind() != reflect.Ptr || classPtr.Elem().Kind() != reflect.Struct {
		return nil, errors.Errorf("non-pointer to struct class '%v'", classPtr)
	}
	s := &Schema{classPtr: classPtr, properties: make(map[string]*Property)}
	class := classPtr.Elem()
	for j := 0; j < class.NumField(); j++ {
		field := class.Field(j)
		if field.Anonymous {
			s.notImplements = append(s.notImplements, field.Type)
		}
		if qualifier, ok := injectQualifier(field.Tag); ok {
			kind := field.Type.Kind()
			if kind != reflect.Ptr && kind != reflect.Interface {
				return nil, errors.Errorf("not a pointer or interface field type '%v' on position %d in %v", field.Type, j, classPtr)
			}
			s.injects = append(s.injects, &injectionDef{
				class:     class,
				fieldNum:  j,
				fieldName: field.Name,
				fieldType: field.Type,
				qualifier: qualifier,
			})
		}
		if field.PkgPath != "" {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup(propertyTag); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		s.add(&Property{Name: name, FieldNum: j, FieldName: field.Name, FieldType: field.Type})
	}
	return s, nil
}

func injectQualifier(tag reflect.StructTag) (string, bool) {
	if tag == injectTag {
		return "", true
	}
	return tag.Lookup(injectTag)
}

/**
	Cache of scanned and declared schemas, key is reflect.Type (classPtr), value is *Schema
 */
type schemaCache struct {
	cache sync.Map
}

func (t *schemaCache) register(s *Schema) {
	t.cache.Store(s.classPtr, s)
}

// multi-threading safe
func (t *schemaCache) schema(classPtr reflect.Type) (*Schema, error) {
	if s, ok := t.cache.Load(classPtr); ok {
		return s.(*Schema), nil
	}
	s, err := investigate(classPtr)
	if err != nil {
		return nil, err
	}
	actual, _ := t.cache.LoadOrStore(classPtr, s)
	return actual.(*Schema), nil
}

/**
	Set value in to the field by using reflection
 */
func (t *Property) set(value reflect.Value, v reflect.Value) error {
	field := value.Field(t.FieldNum)
	if !field.CanSet() {
		return errors.Errorf("field '%s' is not public", t.FieldName)
	}
	field.Set(v)
	return nil
}

func (t *injectionDef) inject(value reflect.Value, impl interface{}) error {
	field := value.Field(t.fieldNum)
	if !field.CanSet() {
		return errors.Errorf("field '%s' in class '%v' is not public", t.fieldName, t.class)
	}
	v := reflect.ValueOf(impl)
	if !v.Type().AssignableTo(t.fieldType) {
		return errors.Errorf("bean of type '%v' is not assignable to field '%s' with type '%v'", v.Type(), t.fieldName, t.fieldType)
	}
	field.Set(v)
	return nil
}

/**
	User friendly information about class and field
 */
func (t *injectionDef) String() string {
	return fmt.Sprintf(" %v->%s ", t.class, t.fieldName)
}
