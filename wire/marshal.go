package wire

import (
	"encoding/json"
	"reflect"
	"strconv"
)

// Payload is a wire-ready map keyed by wire field names.
type Payload map[string]any

// Tag is a closed-set categorical label.
type Tag interface {
	Label() string
}

// Field is one declared field of a request description.
type Field struct {
	Name     string
	Value    any
	WireName string
}

// Request is implemented by every request description.
type Request interface {
	WireFields() []Field
}

type marshalOptions struct {
	excludeNulls bool
}

type Option func(*marshalOptions)

// ExcludeNulls drops keys whose translated value is null.
func ExcludeNulls() Option {
	return func(o *marshalOptions) {
		o.excludeNulls = true
	}
}

// Encode marshals a request description into a Payload.
func Encode(req Request, opts ...Option) (Payload, error) {
	if isNil(req) {
		return Payload{}, nil
	}
	cfg := resolveOptions(opts)
	return encodeRequest(req, "", cfg)
}

// ToWire translates value into its wire form. Payload values are returned
// unchanged; any unrecognized type fails with a serialization error.
func ToWire(value any, opts ...Option) (any, error) {
	cfg := resolveOptions(opts)
	return toWire(value, "", cfg)
}

func resolveOptions(opts []Option) marshalOptions {
	cfg := marshalOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return cfg
}

func toWire(value any, path string, cfg marshalOptions) (any, error) {
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case Payload:
		return typed, nil
	case Tag:
		if isNil(typed) {
			return nil, nil
		}
		return typed.Label(), nil
	case Request:
		if isNil(typed) {
			return nil, nil
		}
		return encodeRequest(typed, path, cfg)
	case string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return typed, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return toWire(rv.Elem().Interface(), path, cfg)
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, serializationError(path, value)
		}
		if rv.IsNil() {
			return nil, nil
		}
		return encodeMap(rv, path, cfg)
	case reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		return encodeSequence(rv, path, cfg)
	case reflect.Array:
		return encodeSequence(rv, path, cfg)
	default:
		return nil, serializationError(path, value)
	}
}

func encodeRequest(req Request, path string, cfg marshalOptions) (Payload, error) {
	fields := req.WireFields()
	out := make(Payload, len(fields))
	for _, field := range fields {
		key := field.WireName
		if key == "" {
			if isInternalName(field.Name) {
				continue
			}
			key = ToCamel(field.Name)
		}
		value, err := toWire(field.Value, joinPath(path, key), cfg)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return dropNulls(out, cfg), nil
}

func encodeMap(rv reflect.Value, path string, cfg marshalOptions) (Payload, error) {
	out := make(Payload, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key := ToCamel(iter.Key().String())
		value, err := toWire(iter.Value().Interface(), joinPath(path, key), cfg)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return dropNulls(out, cfg), nil
}

func encodeSequence(rv reflect.Value, path string, cfg marshalOptions) ([]any, error) {
	out := make([]any, rv.Len())
	for i := range rv.Len() {
		value, err := toWire(rv.Index(i).Interface(), path+"["+strconv.Itoa(i)+"]", cfg)
		if err != nil {
			return nil, err
		}
		out[i] = value
	}
	return out, nil
}

func dropNulls(payload Payload, cfg marshalOptions) Payload {
	if !cfg.excludeNulls {
		return payload
	}
	for key, value := range payload {
		if value == nil {
			delete(payload, key)
		}
	}
	return payload
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
