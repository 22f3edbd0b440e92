package transport

import (
	"net/url"
	"reflect"
	"strconv"
)

// Query holds call parameters under their Go-side names. Encode translates
// them to wire names.
type Query map[string]any

// queryNames maps every recognised parameter to its single wire name.
var queryNames = map[string]string{
	"pageSize":        "page_size",
	"pageNumber":      "page_number",
	"title":           "title",
	"tag":             "tag",
	"self":            "self",
	"authorID":        "author_id",
	"language":        "language",
	"titleLanguage":   "title_language",
	"sortBy":          "sort_by",
	"checkFreeCredit": "check_free_credit",
}

// WireName returns the wire name of a parameter.
func WireName(name string) (string, bool) {
	wire, ok := queryNames[name]
	return wire, ok
}

// Encode translates q into wire query values. Unrecognised names, nil
// values and nil pointers are dropped.
func (q Query) Encode() url.Values {
	values := url.Values{}

	for name, value := range q {
		wire, ok := queryNames[name]
		if !ok {
			continue
		}
		for _, s := range formatQueryValue(value) {
			values.Add(wire, s)
		}
	}

	return values
}

func formatQueryValue(value any) []string {
	v := reflect.ValueOf(value)
	if !v.IsValid() {
		return nil
	}

	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.String:
		return []string{v.String()}
	case reflect.Bool:
		return []string{strconv.FormatBool(v.Bool())}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return []string{strconv.FormatInt(v.Int(), 10)}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return []string{strconv.FormatUint(v.Uint(), 10)}
	case reflect.Float32, reflect.Float64:
		return []string{strconv.FormatFloat(v.Float(), 'f', -1, 64)}
	case reflect.Slice, reflect.Array:
		var out []string
		for i := 0; i < v.Len(); i++ {
			out = append(out, formatQueryValue(v.Index(i).Interface())...)
		}
		return out
	}

	return nil
}
