/*
 * Copyright 2026 Talisson Junior
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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/TalissonJunior/traccar/pkg/logger"
)

const envPrefix = "TRACCAR_"

var (
	errConfigNotPointer = fmt.Errorf("config must be a non-nil pointer")
	errConfigNotStruct  = fmt.Errorf("config must point to a struct")
)

// Validator lets loaded configs normalize and check themselves.
type Validator interface {
	Validate() error
}

// Loader reads JSON configuration files and applies TRACCAR_-prefixed
// environment overrides named after the json tags, nesting with
// underscores (for example TRACCAR_NATS_URL).
type Loader struct {
	log logger.Logger
}

// NewLoader creates a config loader. A nil logger falls back to a basic
// stderr logger so config loading can report problems before the
// configured logger exists.
func NewLoader(log logger.Logger) *Loader {
	if log == nil {
		log = logger.NewBasic()
	}

	return &Loader{log: log}
}

// LoadAndValidate reads path into dst, applies environment overrides,
// then runs dst's Validate when implemented. An empty path skips the
// file and loads from the environment only.
func (l *Loader) LoadAndValidate(_ context.Context, path string, dst interface{}) error {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config %q: %w", path, err)
		}

		if err := json.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("failed to parse config %q: %w", path, err)
		}
	}

	if err := l.applyEnv(dst); err != nil {
		return err
	}

	if validator, ok := dst.(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	return nil
}

func (l *Loader) applyEnv(dst interface{}) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return errConfigNotPointer
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return errConfigNotStruct
	}

	return l.applyEnvStruct(v, envPrefix)
}

func (l *Loader) applyEnvStruct(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}

		tag := strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}

		name := prefix + strings.ToUpper(tag)

		if field.Kind() == reflect.Struct {
			if err := l.applyEnvStruct(field, name+"_"); err != nil {
				return err
			}

			continue
		}

		if field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct {
			if field.IsNil() {
				if !envHasPrefix(name + "_") {
					continue
				}

				field.Set(reflect.New(field.Type().Elem()))
			}

			if err := l.applyEnvStruct(field.Elem(), name+"_"); err != nil {
				return err
			}

			continue
		}

		value := os.Getenv(name)
		if value == "" {
			continue
		}

		if err := setField(field, value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", name, err)
		}

		l.log.Debug().Str("env", name).Msg("Applied environment override")
	}

	return nil
}

func envHasPrefix(prefix string) bool {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, prefix) {
			return true
		}
	}

	return false
}

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}

		field.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}

		field.SetInt(i)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}

		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}

		field.SetFloat(f)

	default:
		// Slices, maps and anything else fall back to JSON.
		return json.Unmarshal([]byte(value), field.Addr().Interface())
	}

	return nil
}
