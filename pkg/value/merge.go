package value

import (
	"errors"
	"fmt"
)

var ErrNotMergeable = errors.New("not mergeable")

// Merge deep-merges source into target and returns the result; neither
// input is modified. Objects merge key by key, a null in source removes the
// key, and any other source value replaces the target value. The top-level
// target must be an object unless source is not one.
func Merge(target, source Value) (Value, error) {
	src, ok := source.(*Object)
	if !ok {
		return source, nil
	}
	dst, ok := target.(*Object)
	if !ok {
		return nil, fmt.Errorf("%w: cannot merge a record into %s", ErrNotMergeable, KindOf(target))
	}
	return mergeObjects(dst, src), nil
}

func mergeObjects(target, source *Object) *Object {
	out := target.Copy()
	source.Range(func(key string, v Value) bool {
		if _, isNull := v.(Null); isNull || v == nil {
			out.Delete(key)
			return true
		}
		if srcObj, ok := v.(*Object); ok {
			if dstObj, ok := out.fields[key].(*Object); ok {
				out.Set(key, mergeObjects(dstObj, srcObj))
				return true
			}
		}
		out.Set(key, v)
		return true
	})
	return out
}
