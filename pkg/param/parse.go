package param

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// parse converts the first line of a parameter file into T. Empty input
// never parses.
func parse[T Value](s string) (T, bool) {
	var v T
	if s == "" {
		return v, false
	}

	rv := reflect.ValueOf(&v).Elem()
	switch rv.Kind() {
	case reflect.String:
		rv.SetString(s)

	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return v, false
		}
		rv.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, rv.Type().Bits())
		if err != nil {
			return v, false
		}
		rv.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, rv.Type().Bits())
		if err != nil {
			return v, false
		}
		rv.SetUint(n)

	case reflect.Float32, reflect.Float64:
		f, err := parseFloat(s, rv.Type().Bits())
		if err != nil {
			return v, false
		}
		rv.SetFloat(f)

	default:
		return v, false
	}
	return v, true
}

// parseFloat accepts everything strconv.ParseFloat does ("Inf" included)
// and also a C-style literal with an "f" suffix such as "1.5f".
func parseFloat(s string, bits int) (float64, error) {
	f, err := strconv.ParseFloat(s, bits)
	if err == nil {
		return f, nil
	}
	if trimmed, ok := strings.CutSuffix(s, "f"); ok {
		return strconv.ParseFloat(trimmed, bits)
	}
	if trimmed, ok := strings.CutSuffix(s, "F"); ok {
		return strconv.ParseFloat(trimmed, bits)
	}
	return 0, err
}

// format renders a value the way it is written to the file.
func format[T Value](v T) string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	}
	return fmt.Sprint(v)
}
