package raw

import "testing"

func TestCloneIsDeep(t *testing.T) {
	inner := Dict()
	inner.Set("Count", NumberInt(1))
	src := Dict()
	src.Set("Kids", NewArray(Ref(3, 0), inner))
	src.Set("Title", Str([]byte("abc")))

	cp := Clone(src).(*DictObj)
	kids, _ := cp.Get("Kids")
	kids.(*ArrayObj).Items[1].(*DictObj).Set("Count", NumberInt(7))

	if n, _ := inner.Int("Count"); n != 1 {
		t.Fatalf("source mutated through clone: Count=%d", n)
	}
	ref, _ := kids.(*ArrayObj).Get(0)
	if ref.(RefObj).R != (ObjectRef{Num: 3}) {
		t.Fatalf("reference changed: %v", ref)
	}
}

func TestResolveFollowsChains(t *testing.T) {
	doc := NewDocument()
	target := Dict()
	target.Set("Type", NameLiteral("Page"))
	r1 := doc.Add(target)
	r2 := doc.Add(r1)

	d, ok := doc.ResolveDict(r2)
	if !ok {
		t.Fatalf("expected dictionary")
	}
	if name, _ := d.Name("Type"); name != "Page" {
		t.Fatalf("unexpected type %q", name)
	}
	if _, ok := doc.Resolve(Ref(99, 0)).(NullObj); !ok {
		t.Fatalf("dangling reference should resolve to null")
	}
}

func TestRefsSorted(t *testing.T) {
	doc := NewDocument()
	doc.Objects[ObjectRef{Num: 5}] = NullObj{}
	doc.Objects[ObjectRef{Num: 2}] = NullObj{}
	doc.Objects[ObjectRef{Num: 9}] = NullObj{}
	refs := doc.Refs()
	if refs[0].Num != 2 || refs[1].Num != 5 || refs[2].Num != 9 {
		t.Fatalf("unexpected order %v", refs)
	}
	if doc.MaxObjectNumber() != 9 {
		t.Fatalf("max object number = %d", doc.MaxObjectNumber())
	}
}
