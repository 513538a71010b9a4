package raw

import (
	"fmt"
	"sort"
)

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is the base interface for all raw PDF objects.
type Object interface {
	Type() string
	IsIndirect() bool
}

// Document is the root container for raw PDF objects.
type Document struct {
	Objects map[ObjectRef]Object
	Trailer *DictObj
	Version string // e.g., "1.7"
}

// NewDocument returns an empty document with an empty trailer.
func NewDocument() *Document {
	return &Document{
		Objects: make(map[ObjectRef]Object),
		Trailer: Dict(),
		Version: "1.7",
	}
}

// MaxObjectNumber returns the highest object number in use.
func (d *Document) MaxObjectNumber() int {
	max := 0
	for ref := range d.Objects {
		if ref.Num > max {
			max = ref.Num
		}
	}
	return max
}

// Add stores obj under a fresh object number and returns its reference.
func (d *Document) Add(obj Object) RefObj {
	ref := ObjectRef{Num: d.MaxObjectNumber() + 1}
	d.Objects[ref] = obj
	return RefObj{R: ref}
}

// Resolve follows references until a direct object is reached. Dangling
// references resolve to NullObj.
func (d *Document) Resolve(obj Object) Object {
	for i := 0; i < 32; i++ {
		ref, ok := obj.(RefObj)
		if !ok {
			return obj
		}
		target, ok := d.Objects[ref.R]
		if !ok {
			return NullObj{}
		}
		obj = target
	}
	return NullObj{}
}

// ResolveDict resolves obj and returns it as a dictionary. Stream
// dictionaries are returned as well.
func (d *Document) ResolveDict(obj Object) (*DictObj, bool) {
	switch v := d.Resolve(obj).(type) {
	case *DictObj:
		return v, true
	case *StreamObj:
		return v.Dict, true
	}
	return nil, false
}

// ResolveArray resolves obj and returns it as an array.
func (d *Document) ResolveArray(obj Object) (*ArrayObj, bool) {
	a, ok := d.Resolve(obj).(*ArrayObj)
	return a, ok
}

// Refs returns all object references sorted by number.
func (d *Document) Refs() []ObjectRef {
	refs := make([]ObjectRef, 0, len(d.Objects))
	for ref := range d.Objects {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Num == refs[j].Num {
			return refs[i].Gen < refs[j].Gen
		}
		return refs[i].Num < refs[j].Num
	})
	return refs
}
