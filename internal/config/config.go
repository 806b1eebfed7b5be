// Package config binds an options struct to command line flags and
// OUVRT_CAMERAS_* environment variables.
//
// Fields are described with struct tags:
//
//	StopTimeout time.Duration `help:"Per-pipeline teardown bound" default:"10s" env:"STOP_TIMEOUT"`
//
// The flag name is derived from the field name ("StopTimeout" -> "stop-timeout")
// unless a flag tag overrides it. Precedence is CLI flag > environment > default.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "OUVRT_CAMERAS_"

var durationType = reflect.TypeOf(time.Duration(0))

// RegisterFlags defines one flag per tagged field of the struct opts points to.
// Defaults come from the default tag and are written into opts.
func RegisterFlags(flags *pflag.FlagSet, opts any) error {
	v, err := structValue(opts)
	if err != nil {
		return err
	}
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		help, ok := fieldType.Tag.Lookup("help")
		if !ok || !field.CanSet() {
			continue
		}

		name := flagName(fieldType)
		short := fieldType.Tag.Get("short")
		def := fieldType.Tag.Get("default")
		if envKey := fieldType.Tag.Get("env"); envKey != "" {
			help = fmt.Sprintf("%s (env %s%s)", help, EnvPrefix, envKey)
		}

		ptr := field.Addr().Interface()
		switch p := ptr.(type) {
		case *string:
			flags.StringVarP(p, name, short, def, help)
		case *bool:
			b, err := parseDefault(def, strconv.ParseBool)
			if err != nil {
				return fmt.Errorf("%s: %w", fieldType.Name, err)
			}
			flags.BoolVarP(p, name, short, b, help)
		case *int:
			n, err := parseDefault(def, strconv.Atoi)
			if err != nil {
				return fmt.Errorf("%s: %w", fieldType.Name, err)
			}
			flags.IntVarP(p, name, short, n, help)
		case *time.Duration:
			d, err := parseDefault(def, time.ParseDuration)
			if err != nil {
				return fmt.Errorf("%s: %w", fieldType.Name, err)
			}
			flags.DurationVarP(p, name, short, d, help)
		case *[]string:
			var s []string
			if def != "" {
				s = splitList(def)
			}
			flags.StringSliceVarP(p, name, short, s, help)
		default:
			return fmt.Errorf("%s: unsupported option type %s", fieldType.Name, field.Type())
		}
	}
	return nil
}

// LoadConfig applies environment overrides to opts.
// If cmd is provided, flags explicitly set via CLI will not be overwritten.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v, err := structValue(opts)
	if err != nil {
		return err
	}
	t := v.Type()

	// Build set of flags explicitly changed via CLI
	changedFlags := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changedFlags[f.Name] = true
			}
		})
	}

	var errs []error
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if changedFlags[flagName(fieldType)] {
			continue
		}

		envKey := fieldType.Tag.Get("env")
		if envKey == "" {
			continue
		}
		envValue, ok := os.LookupEnv(EnvPrefix + envKey)
		if !ok || envValue == "" {
			continue
		}
		if err := setFieldValueFromString(field, envValue); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, envKey, err))
		}
	}
	return errors.Join(errs...)
}

func structValue(opts any) (reflect.Value, error) {
	v := reflect.ValueOf(opts)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("options must be a pointer to a struct, got %T", opts)
	}
	return v.Elem(), nil
}

func flagName(f reflect.StructField) string {
	if name := f.Tag.Get("flag"); name != "" {
		return name
	}
	return fieldNameToFlag(f.Name)
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Example: "LoggingLevel" -> "logging-level", "Port" -> "port".
func fieldNameToFlag(fieldName string) string {
	var result []rune
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '-')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

func parseDefault[T any](def string, parse func(string) (T, error)) (T, error) {
	var zero T
	if def == "" {
		return zero, nil
	}
	return parse(def)
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// setFieldValueFromString sets a field value from string (for env vars).
func setFieldValueFromString(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		field.Set(reflect.ValueOf(splitList(value)))
	default:
		return fmt.Errorf("unsupported type %s", field.Type())
	}
	return nil
}
