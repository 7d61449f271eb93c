//go:build linux

package dbushelper

import (
	"slices"

	errorkinds "github.com/bluetuith-org/bluele/api/errorkinds"
	"github.com/godbus/dbus/v5"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Properties holds the properties of a single object interface.
type Properties map[string]dbus.Variant

// Object holds a single object path, and its interfaces and their properties.
// It is only valid during a single traversal pass.
type Object struct {
	Path       dbus.ObjectPath
	Interfaces map[string]Properties
}

// ObjectTree holds the managed object tree published by Bluez.
// Objects are kept in document order, which is the order of their object paths.
// Bluez names services, characteristics and descriptors with zero-padded hex handles,
// so this order matches the order in which the objects were created.
type ObjectTree struct {
	objects *orderedmap.OrderedMap[dbus.ObjectPath, Object]
}

// managedObjects is the Go form of the 'a{oa{sa{sv}}}' signature.
type managedObjects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// NewObjectTree returns an object tree with the provided objects, in the order they are given.
func NewObjectTree(objects ...Object) *ObjectTree {
	tree := &ObjectTree{objects: orderedmap.New[dbus.ObjectPath, Object]()}
	for _, object := range objects {
		tree.objects.Set(object.Path, object)
	}

	return tree
}

// ParseManagedObjects decodes the reply body of an ObjectManager.GetManagedObjects call.
func ParseManagedObjects(body []any) (*ObjectTree, error) {
	if len(body) < 1 {
		return nil, errorkinds.ErrPropertyDataParse
	}

	objects, ok := body[0].(managedObjects)
	if !ok {
		return nil, errorkinds.ErrPropertyDataParse
	}

	paths := make([]dbus.ObjectPath, 0, len(objects))
	for path := range objects {
		paths = append(paths, path)
	}
	slices.Sort(paths)

	tree := NewObjectTree()
	for _, path := range paths {
		tree.objects.Set(path, newObject(path, objects[path]))
	}

	return tree, nil
}

// ParseInterfacesAdded decodes the body of an ObjectManager.InterfacesAdded signal.
func ParseInterfacesAdded(body []any) (Object, error) {
	if len(body) < 2 {
		return Object{}, errorkinds.ErrEventDataParse
	}

	path, ok := body[0].(dbus.ObjectPath)
	if !ok {
		return Object{}, errorkinds.ErrEventDataParse
	}

	interfaces, ok := body[1].(map[string]map[string]dbus.Variant)
	if !ok {
		return Object{}, errorkinds.ErrEventDataParse
	}

	return newObject(path, interfaces), nil
}

// ParsePropertiesChanged decodes the body of a Properties.PropertiesChanged signal,
// and returns the interface name and the changed properties.
func ParsePropertiesChanged(body []any) (string, Properties, error) {
	if len(body) < 2 {
		return "", nil, errorkinds.ErrEventDataParse
	}

	iface, ok := body[0].(string)
	if !ok {
		return "", nil, errorkinds.ErrEventDataParse
	}

	changed, ok := body[1].(map[string]dbus.Variant)
	if !ok {
		return "", nil, errorkinds.ErrEventDataParse
	}

	return iface, changed, nil
}

// Len returns the number of objects in the tree.
func (t *ObjectTree) Len() int {
	return t.objects.Len()
}

// Object returns the object at the provided path.
func (t *ObjectTree) Object(path dbus.ObjectPath) (Object, bool) {
	return t.objects.Get(path)
}

// Range calls fn for each object in document order, until fn returns false.
func (t *ObjectTree) Range(fn func(object Object) bool) {
	for pair := t.objects.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Value) {
			return
		}
	}
}

// Properties returns the properties of the provided interface, if the object exposes it.
func (o Object) Properties(iface string) (Properties, bool) {
	props, ok := o.Interfaces[iface]

	return props, ok
}

// GetString returns the string value of a property.
func (p Properties) GetString(name string) (string, bool, error) {
	return propertyValue[string](p, name)
}

// GetBool returns the boolean value of a property.
func (p Properties) GetBool(name string) (bool, bool, error) {
	return propertyValue[bool](p, name)
}

// GetStrings returns the string list value of a property.
func (p Properties) GetStrings(name string) ([]string, bool, error) {
	return propertyValue[[]string](p, name)
}

// GetBytes returns the byte array value of a property.
func (p Properties) GetBytes(name string) ([]byte, bool, error) {
	return propertyValue[[]byte](p, name)
}

// Select returns a copy of the properties that only holds the provided names.
func (p Properties) Select(names ...string) Properties {
	selected := make(Properties, len(names))
	for _, name := range names {
		if v, ok := p[name]; ok {
			selected[name] = v
		}
	}

	return selected
}

// propertyValue returns the value of a property, whether it exists, and an
// error if it exists with an unexpected type.
func propertyValue[T any](p Properties, name string) (T, bool, error) {
	var value T

	v, ok := p[name]
	if !ok {
		return value, false, nil
	}

	value, ok = v.Value().(T)
	if !ok {
		return value, true, errorkinds.ErrPropertyDataParse
	}

	return value, true, nil
}

func newObject(path dbus.ObjectPath, interfaces map[string]map[string]dbus.Variant) Object {
	object := Object{
		Path:       path,
		Interfaces: make(map[string]Properties, len(interfaces)),
	}

	for iface, props := range interfaces {
		object.Interfaces[iface] = props
	}

	return object
}
