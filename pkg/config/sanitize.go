/*
 * Copyright 2025 Carver Automation Corporation.
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
 */

package config

import (
	"encoding/json"
	"reflect"
	"strings"
)

const redacted = "****"

// Sanitize renders cfg as a generic map with every field tagged
// `sensitive:"true"` replaced by a placeholder, suitable for logging.
func Sanitize(cfg interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	redactTagged(reflect.TypeOf(cfg), out)

	return out, nil
}

func redactTagged(t reflect.Type, node interface{}) {
	for t != nil && (t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice) {
		if t.Kind() == reflect.Slice {
			items, ok := node.([]interface{})
			if !ok {
				return
			}

			for _, item := range items {
				redactTagged(t.Elem(), item)
			}

			return
		}

		t = t.Elem()
	}

	m, ok := node.(map[string]interface{})
	if t == nil || t.Kind() != reflect.Struct || !ok {
		return
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)

		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			continue
		}

		value, present := m[name]
		if !present {
			continue
		}

		if f.Tag.Get("sensitive") == "true" {
			if s, isStr := value.(string); !isStr || s != "" {
				m[name] = redacted
			}

			continue
		}

		redactTagged(f.Type, value)
	}
}
