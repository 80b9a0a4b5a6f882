package value

// Object maps string keys to values and remembers insertion order.
//
// Set and Delete mutate the receiver. They are meant for objects under
// construction or for private copies obtained through Copy.
type Object struct {
	keys   []string
	fields map[string]Value
}

// Field is a single key/value pair used to build objects.
type Field struct {
	Key   string
	Value Value
}

// NewObject returns an empty object with room for capacity fields.
func NewObject(capacity int) *Object {
	return &Object{
		keys:   make([]string, 0, capacity),
		fields: make(map[string]Value, capacity),
	}
}

// ObjectOf builds an object from fields; later duplicates replace earlier ones
// while keeping the original position.
func ObjectOf(fields ...Field) *Object {
	out := NewObject(len(fields))
	for _, field := range fields {
		out.Set(field.Key, field.Value)
	}
	return out
}

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.fields[key]
	return v, ok
}

func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Range calls fn for every field in insertion order until fn returns false.
func (o *Object) Range(fn func(key string, v Value) bool) {
	if o == nil {
		return
	}
	for _, key := range o.keys {
		if !fn(key, o.fields[key]) {
			return
		}
	}
}

func (o *Object) Set(key string, v Value) {
	if v == nil {
		v = Null{}
	}
	if _, exists := o.fields[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = v
}

// Delete removes key and reports whether it was present.
func (o *Object) Delete(key string) bool {
	if _, exists := o.fields[key]; !exists {
		return false
	}
	delete(o.fields, key)
	for i, existing := range o.keys {
		if existing == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// Copy returns a shallow copy that can be mutated independently.
func (o *Object) Copy() *Object {
	out := NewObject(o.Len() + 1)
	if o == nil {
		return out
	}
	for _, key := range o.keys {
		out.keys = append(out.keys, key)
		out.fields[key] = o.fields[key]
	}
	return out
}

// With returns a copy of o with key set to v.
func (o *Object) With(key string, v Value) *Object {
	out := o.Copy()
	out.Set(key, v)
	return out
}

// Without returns a copy of o with key removed.
func (o *Object) Without(key string) *Object {
	out := o.Copy()
	out.Delete(key)
	return out
}
