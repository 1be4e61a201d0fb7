package addons

import "reflect"

// ExportedInstance is a service published by an addon. It holds only a back reference
// to its source addon; consumers must not keep it beyond the addon's lifetime.
type ExportedInstance interface {
	// ActualType is the concrete runtime type of the values returned by Get.
	ActualType() reflect.Type
	// Get returns a service value.
	Get() any
	// Release is called when a consumer is done with a value returned by Get.
	Release(instance any)
	// Source is the addon that exported the service.
	Source() *Addon
}

// TypeName returns the canonical name used for lookups across isolation boundaries:
// the import path qualified type name, prefixed with '*' for pointers.
func TypeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	if t.Kind() == reflect.Pointer && t.Name() == "" {
		return "*" + TypeName(t.Elem())
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// TypeOf returns the reflect.Type of T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

type singleton struct {
	source *Addon
	value  any
	typ    reflect.Type
}

// Singleton exports the same value on every Get.
func Singleton(source *Addon, value any) ExportedInstance {
	return &singleton{source: source, value: value, typ: reflect.TypeOf(value)}
}

func (s *singleton) ActualType() reflect.Type { return s.typ }
func (s *singleton) Get() any { return s.value }
func (s *singleton) Release(any) {}
func (s *singleton) Source() *Addon { return s.source }

type factory struct {
	source  *Addon
	typ     reflect.Type
	create  func() any
	release func(any)
}

// Factory exports a fresh value on every Get. release, if not nil, is called for each
// value a consumer gives back.
func Factory(source *Addon, typ reflect.Type, create func() any, release func(any)) ExportedInstance {
	return &factory{source: source, typ: typ, create: create, release: release}
}

func (f *factory) ActualType() reflect.Type { return f.typ }
func (f *factory) Get() any { return f.create() }
func (f *factory) Source() *Addon { return f.source }

func (f *factory) Release(instance any) {
	if f.release != nil {
		f.release(instance)
	}
}
