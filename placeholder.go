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
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

/**
@author Alex Shvid
*/

const (
	placeholderPrefix = "${"
	placeholderSuffix = "}"
	defaultSeparator  = ":"
)

/**
	PlaceholderConfigurer replaces ${key} and ${key:default} in string property
	values of all definitions. Keys are looked up in the .env style files of
	Locations, later files win, then in the process environment.
 */
type PlaceholderConfigurer struct {
	Locations []string `bean:"locations"`

	/**
		Extra properties that win over files and environment
	 */
	Properties map[string]string `bean:"-"`
}

func NewPlaceholderConfigurer(locations ...string) *PlaceholderConfigurer {
	return &PlaceholderConfigurer{Locations: locations}
}

func (t *PlaceholderConfigurer) load() (map[string]string, error) {
	props := make(map[string]string)
	for _, location := range t.Locations {
		m, err := godotenv.Read(location)
		if err != nil {
			return nil, errors.Wrapf(err, "read properties '%s'", location)
		}
		for k, v := range m {
			props[k] = v
		}
	}
	for k, v := range t.Properties {
		props[k] = v
	}
	return props, nil
}

func (t *PlaceholderConfigurer) PostProcessBeanFactory(factory ConfigurableBeanFactory) error {
	props, err := t.load()
	if err != nil {
		return err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := props[key]; ok {
			return v, true
		}
		return os.LookupEnv(key)
	}
	for _, name := range factory.DefinitionNames() {
		def, err := factory.Definition(name)
		if err != nil {
			return err
		}
		for _, pv := range def.Properties {
			str, ok := pv.Value.(string)
			if !ok || !strings.Contains(str, placeholderPrefix) {
				continue
			}
			resolved, err := ResolvePlaceholders(str, lookup)
			if err != nil {
				return newPropertyError(ErrInvalidDefinition, name, pv.Name, err)
			}
			def.Properties = def.Properties.With(pv.Name, resolved)
		}
	}
	return nil
}

/**
	Substitutes every ${key} or ${key:default} in the text.
	A key without value and default is an error.
 */
func ResolvePlaceholders(text string, lookup func(key string) (string, bool)) (string, error) {
	var out strings.Builder
	for {
		start := strings.Index(text, placeholderPrefix)
		if start < 0 {
			out.WriteString(text)
			return out.String(), nil
		}
		end := strings.Index(text[start:], placeholderSuffix)
		if end < 0 {
			return "", errors.Errorf("unclosed placeholder in '%s'", text)
		}
		end += start
		out.WriteString(text[:start])

		key := text[start+len(placeholderPrefix) : end]
		def, hasDefault := "", false
		if i := strings.Index(key, defaultSeparator); i >= 0 {
			key, def, hasDefault = key[:i], key[i+len(defaultSeparator):], true
		}
		if key == "" {
			return "", errors.Errorf("empty placeholder in '%s'", text)
		}
		if value, ok := lookup(key); ok {
			out.WriteString(value)
		} else if hasDefault {
			out.WriteString(def)
		} else {
			return "", errors.Errorf("could not resolve placeholder '%s'", key)
		}
		text = text[end+len(placeholderSuffix):]
	}
}
