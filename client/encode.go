package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"reflect"
	"slices"
	"strings"
)

// Encoding selects how [Parameters] are written into a request.
type Encoding string

const (
	// EncodingURL puts parameters in the query string for GET, HEAD and
	// DELETE, and in an application/x-www-form-urlencoded body otherwise.
	// Keys are sorted. Slices encode as key[]=v, nested maps as
	// key[sub]=v and booleans as 1 or 0.
	EncodingURL Encoding = "url"
	// EncodingJSON sends parameters as a JSON body.
	EncodingJSON Encoding = "json"
)

const (
	contentTypeForm = "application/x-www-form-urlencoded; charset=utf-8"
	contentTypeJSON = "application/json"
)

// encode returns the URL and body for d, setting Content-Type on header
// when a body is produced and none is present.
func (d Descriptor) encode(header http.Header) (*url.URL, io.Reader, error) {
	u := *d.target

	if d.parameters == nil {
		return &u, nil, nil
	}

	switch d.encoding {
	case EncodingJSON:
		b, err := json.Marshal(d.parameters)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding json parameters: %w", err)
		}
		setDefault(header, "Content-Type", contentTypeJSON)

		return &u, bytes.NewReader(b), nil

	default:
		query := encodeQuery(d.parameters)

		switch d.method {
		case http.MethodGet, http.MethodHead, http.MethodDelete:
			if query != "" {
				if u.RawQuery != "" {
					u.RawQuery += "&" + query
				} else {
					u.RawQuery = query
				}
			}
			return &u, nil, nil
		}

		setDefault(header, "Content-Type", contentTypeForm)

		return &u, strings.NewReader(query), nil
	}
}

func setDefault(header http.Header, key, value string) {
	if header.Get(key) == "" {
		header.Set(key, value)
	}
}

// encodeQuery flattens params into a sorted, escaped query string.
func encodeQuery(params Parameters) string {
	var pairs []string
	for _, key := range slices.Sorted(maps.Keys(params)) {
		pairs = appendPairs(pairs, key, reflect.ValueOf(params[key]))
	}

	return strings.Join(pairs, "&")
}

func appendPairs(pairs []string, key string, v reflect.Value) []string {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return append(pairs, url.QueryEscape(key)+"=")
		}
		v = v.Elem()
	}

	if !v.IsValid() {
		return append(pairs, url.QueryEscape(key)+"=")
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			break
		}

		keys := make([]string, 0, v.Len())
		for _, k := range v.MapKeys() {
			keys = append(keys, k.String())
		}
		slices.Sort(keys)

		for _, k := range keys {
			pairs = appendPairs(pairs, key+"["+k+"]", v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key())))
		}
		return pairs

	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 && v.Kind() == reflect.Slice {
			return append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(string(v.Bytes())))
		}

		for i := range v.Len() {
			pairs = appendPairs(pairs, key+"[]", v.Index(i))
		}
		return pairs

	case reflect.Bool:
		value := "0"
		if v.Bool() {
			value = "1"
		}
		return append(pairs, url.QueryEscape(key)+"="+value)
	}

	return append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(fmt.Sprint(v.Interface())))
}
