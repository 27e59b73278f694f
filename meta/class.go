package meta

import "fmt"

// Class is the runtime object class. The numbering is shared with the
// runtime's class enumeration and encoded directly in the packed form.
type Class uint8

const (
	ClassNone Class = iota
	ClassObject
	ClassArray
	ClassFunction
	ClassArguments
	ClassBoolean
	ClassDate
	ClassError
	ClassJSON
	ClassMath
	ClassNumber
	ClassRegExp
	ClassString
	ClassGlobal
	ClassSymbol
	ClassObjEnv
	ClassDecEnv
	ClassPointer
	ClassThread
	ClassArrayBuffer
	ClassDataView
	ClassInt8Array
	ClassUint8Array
	ClassUint8ClampedArray
	ClassInt16Array
	ClassUint16Array
	ClassInt32Array
	ClassUint32Array
	ClassFloat32Array
	ClassFloat64Array

	numClasses
)

var classNames = [numClasses]string{
	"None", "Object", "Array", "Function", "Arguments", "Boolean", "Date",
	"Error", "JSON", "Math", "Number", "RegExp", "String", "global",
	"Symbol", "ObjEnv", "DecEnv", "Pointer", "Thread", "ArrayBuffer",
	"DataView", "Int8Array", "Uint8Array", "Uint8ClampedArray",
	"Int16Array", "Uint16Array", "Int32Array", "Uint32Array",
	"Float32Array", "Float64Array",
}

var classByName = func() map[string]Class {
	m := make(map[string]Class, numClasses)
	for i, n := range classNames {
		m[n] = Class(i)
	}
	return m
}()

// ParseClass maps a metadata class name to its Class.
func ParseClass(name string) (Class, error) {
	c, ok := classByName[name]
	if !ok || c == ClassNone {
		return ClassNone, fmt.Errorf("%w: unknown class %q", ErrSchema, name)
	}
	return c, nil
}

func (c Class) String() string {
	if c < numClasses {
		return classNames[c]
	}
	return fmt.Sprintf("Class(%d)", uint8(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Class) UnmarshalText(b []byte) error {
	v, err := ParseClass(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
