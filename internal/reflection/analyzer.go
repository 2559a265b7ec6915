// Package reflection analyzes Go functions so they can be auto-wired: it
// derives one dependency per parameter and calls the function with resolved
// values.
package reflection

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"sync"
)

// In marks a parameter object. A function whose only parameter is a struct
// embedding In receives each exported field as a separate dependency.
//
// Field tags:
//
//	name:"primary"  resolve the qualified key
//	all:"true"      the field is a slice filled with every provider of its element type
type In struct{}

var (
	inType      = reflect.TypeOf((*In)(nil)).Elem()
	errType     = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

var (
	// ErrNotFunc is returned when the analyzed value is not a function.
	ErrNotFunc = errors.New("not a function")

	// ErrVariadic is returned for variadic functions.
	ErrVariadic = errors.New("variadic functions cannot be auto-wired")
)

// Param describes one value a function needs.
type Param struct {
	// Type is the type to resolve. For collections it is the element type.
	Type       reflect.Type
	Name       string
	Qualifier  string
	Collection bool

	// Context parameters are bound to the caller's context instead of
	// being resolved.
	Context bool

	// Field is the struct field index inside a parameter object, or -1.
	Field int
}

// Func is an analyzed function.
type Func struct {
	Value        reflect.Value
	Type         reflect.Type
	Params       []Param
	ParamObject  reflect.Type
	Results      []reflect.Type
	ReturnsError bool
}

// Analyzer caches function analysis by function type. Closures created from
// the same literal share a code pointer, so the type is the cache key and
// the analyzed value is attached per call.
type Analyzer struct {
	mu    sync.RWMutex
	cache map[reflect.Type]*Func
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{cache: make(map[reflect.Type]*Func)}
}

// Analyze inspects fn.
func (a *Analyzer) Analyze(fn any) (*Func, error) {
	if fn == nil {
		return nil, fmt.Errorf("function cannot be nil: %w", ErrNotFunc)
	}

	val := reflect.ValueOf(fn)
	if val.Kind() != reflect.Func {
		return nil, fmt.Errorf("%T: %w", fn, ErrNotFunc)
	}
	if val.IsNil() {
		return nil, fmt.Errorf("function cannot be nil: %w", ErrNotFunc)
	}

	a.mu.RLock()
	cached, ok := a.cache[val.Type()]
	a.mu.RUnlock()

	if !ok {
		info, err := analyze(val.Type())
		if err != nil {
			return nil, err
		}

		a.mu.Lock()
		a.cache[val.Type()] = info
		a.mu.Unlock()

		cached = info
	}

	out := *cached
	out.Value = val
	return &out, nil
}

func analyze(typ reflect.Type) (*Func, error) {
	if typ.IsVariadic() {
		return nil, fmt.Errorf("%s: %w", typ, ErrVariadic)
	}

	info := &Func{Type: typ}

	if typ.NumIn() == 1 && isParamObject(typ.In(0)) {
		params, err := analyzeParamObject(typ.In(0))
		if err != nil {
			return nil, err
		}
		info.ParamObject = typ.In(0)
		info.Params = params
	} else {
		info.Params = make([]Param, typ.NumIn())
		for i := range typ.NumIn() {
			in := typ.In(i)
			info.Params[i] = Param{
				Type:    in,
				Name:    "arg" + strconv.Itoa(i),
				Context: in == contextType,
				Field:   -1,
			}
		}
	}

	n := typ.NumOut()
	if n > 0 && typ.Out(n-1) == errType {
		info.ReturnsError = true
		n--
	}

	info.Results = make([]reflect.Type, n)
	for i := range n {
		info.Results[i] = typ.Out(i)
	}

	return info, nil
}

func isParamObject(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Anonymous && f.Type == inType {
			return true
		}
	}
	return false
}

func analyzeParamObject(t reflect.Type) ([]Param, error) {
	params := make([]Param, 0, t.NumField())

	for i := range t.NumField() {
		f := t.Field(i)
		if f.Anonymous && f.Type == inType {
			continue
		}

		if !f.IsExported() {
			return nil, fmt.Errorf("%s.%s: parameter object fields must be exported", t, f.Name)
		}

		p := Param{
			Type:      f.Type,
			Name:      f.Name,
			Qualifier: f.Tag.Get("name"),
			Context:   f.Type == contextType,
			Field:     i,
		}

		if all, ok := f.Tag.Lookup("all"); ok {
			collection, err := strconv.ParseBool(all)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: invalid all tag %q: %w", t, f.Name, all, err)
			}
			if collection {
				if f.Type.Kind() != reflect.Slice {
					return nil, fmt.Errorf("%s.%s: all tag requires a slice field", t, f.Name)
				}
				p.Type = f.Type.Elem()
				p.Collection = true
			}
		}

		params = append(params, p)
	}

	return params, nil
}

// Call invokes the function. args holds one value per Param; a collection
// param takes a []any. Nil values are passed as the zero value of the
// parameter type. The trailing error result, if any, is returned separately.
func (f *Func) Call(args []any) ([]any, error) {
	if len(args) != len(f.Params) {
		return nil, fmt.Errorf("%s: expected %d arguments, got %d", f.Type, len(f.Params), len(args))
	}

	values := make([]reflect.Value, len(args))
	for i, p := range f.Params {
		v, err := p.value(args[i])
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	if f.ParamObject != nil {
		obj := reflect.New(f.ParamObject).Elem()
		for i, p := range f.Params {
			obj.Field(p.Field).Set(values[i])
		}
		values = []reflect.Value{obj}
	}

	out := f.Value.Call(values)

	var err error
	if f.ReturnsError {
		if e := out[len(out)-1]; !e.IsNil() {
			err = e.Interface().(error)
		}
		out = out[:len(out)-1]
	}

	results := make([]any, len(out))
	for i, v := range out {
		results[i] = v.Interface()
	}

	return results, err
}

func (p Param) value(arg any) (reflect.Value, error) {
	if !p.Collection {
		return convert(arg, p.Type, p.Name)
	}

	sliceType := reflect.SliceOf(p.Type)
	if arg == nil {
		return reflect.MakeSlice(sliceType, 0, 0), nil
	}

	items, ok := arg.([]any)
	if !ok {
		return reflect.Value{}, fmt.Errorf("%s: expected []any for collection, got %T", p.Name, arg)
	}

	slice := reflect.MakeSlice(sliceType, len(items), len(items))
	for i, item := range items {
		v, err := convert(item, p.Type, p.Name)
		if err != nil {
			return reflect.Value{}, err
		}
		slice.Index(i).Set(v)
	}

	return slice, nil
}

func convert(arg any, t reflect.Type, name string) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(t), nil
	}

	v := reflect.ValueOf(arg)
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("%s: %s is not assignable to %s", name, v.Type(), t)
	}

	if v.Type() != t {
		converted := reflect.New(t).Elem()
		converted.Set(v)
		return converted, nil
	}

	return v, nil
}
