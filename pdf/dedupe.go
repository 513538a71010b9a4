package pdf

import (
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/wudi/legalkit/ir/raw"
)

// DeduplicateStreams merges indirect streams with identical dictionaries
// and data into the one with the lowest object number and returns the
// number of streams removed. Page edits always add new streams, so a merged
// stream is never modified through one of its users.
func (d *Document) DeduplicateStreams() int {
	removed := 0
	for {
		seen := make(map[[sha256.Size]byte]raw.ObjectRef)
		replacements := make(map[raw.ObjectRef]raw.ObjectRef)
		for _, ref := range d.raw.Refs() {
			s, ok := d.raw.Objects[ref].(*raw.StreamObj)
			if !ok {
				continue
			}
			h := hashObject(s)
			if original, dup := seen[h]; dup {
				replacements[ref] = original
			} else {
				seen[h] = ref
			}
		}
		if len(replacements) == 0 {
			return removed
		}
		for _, obj := range d.raw.Objects {
			replaceRefs(obj, replacements)
		}
		replaceRefs(d.raw.Trailer, replacements)
		for key, ref := range d.fonts {
			if to, ok := replacements[ref.R]; ok {
				d.fonts[key] = raw.RefObj{R: to}
			}
		}
		for dup := range replacements {
			delete(d.raw.Objects, dup)
		}
		removed += len(replacements)
	}
}

func hashObject(obj raw.Object) [sha256.Size]byte {
	h := sha256.New()
	writeHash(h, obj)
	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

func writeHash(h hash.Hash, obj raw.Object) {
	switch v := obj.(type) {
	case nil:
		fmt.Fprint(h, "nil")
	case raw.NameObj:
		fmt.Fprintf(h, "/%s", v.Val)
	case raw.NumberObj:
		if v.IsInt {
			fmt.Fprintf(h, "i%d", v.I)
		} else {
			fmt.Fprintf(h, "f%g", v.F)
		}
	case raw.BoolObj:
		fmt.Fprintf(h, "b%t", v.V)
	case raw.NullObj:
		fmt.Fprint(h, "null")
	case raw.StringObj:
		fmt.Fprintf(h, "s%d:", len(v.Bytes))
		h.Write(v.Bytes)
	case raw.RefObj:
		fmt.Fprintf(h, "r%d.%d", v.R.Num, v.R.Gen)
	case *raw.ArrayObj:
		fmt.Fprint(h, "[")
		for _, item := range v.Items {
			writeHash(h, item)
			fmt.Fprint(h, ",")
		}
		fmt.Fprint(h, "]")
	case *raw.DictObj:
		fmt.Fprint(h, "<<")
		for _, k := range v.Keys() {
			fmt.Fprintf(h, "/%s ", k)
			writeHash(h, v.KV[k])
		}
		fmt.Fprint(h, ">>")
	case *raw.StreamObj:
		writeHash(h, v.Dict)
		fmt.Fprintf(h, "stream%d:", len(v.Data))
		h.Write(v.Data)
	default:
		fmt.Fprintf(h, "?%s", obj.Type())
	}
}

func replaceRefs(obj raw.Object, replacements map[raw.ObjectRef]raw.ObjectRef) {
	switch v := obj.(type) {
	case *raw.ArrayObj:
		for i, item := range v.Items {
			if ref, ok := item.(raw.RefObj); ok {
				if to, found := replacements[ref.R]; found {
					v.Items[i] = raw.RefObj{R: to}
				}
				continue
			}
			replaceRefs(item, replacements)
		}
	case *raw.DictObj:
		for k, item := range v.KV {
			if ref, ok := item.(raw.RefObj); ok {
				if to, found := replacements[ref.R]; found {
					v.KV[k] = raw.RefObj{R: to}
				}
				continue
			}
			replaceRefs(item, replacements)
		}
	case *raw.StreamObj:
		replaceRefs(v.Dict, replacements)
	}
}
