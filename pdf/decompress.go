package pdf

import (
	"context"
	"strconv"

	"github.com/wudi/legalkit/ir/raw"
)

// Decompress decodes every non-image stream whose filters are supported and
// stores it unfiltered. Streams that fail to decode are left untouched and
// reported through skipped.
func (d *Document) Decompress(ctx context.Context, skipped func(ref raw.ObjectRef, err error)) error {
	for _, ref := range d.raw.Refs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		s, ok := d.raw.Objects[ref].(*raw.StreamObj)
		if !ok {
			continue
		}
		if _, has := s.Dict.Get("Filter"); !has {
			continue
		}
		if st, _ := s.Dict.Name("Subtype"); st == "Image" {
			continue
		}
		data, err := d.pipeline.DecodeStream(ctx, s)
		if err != nil {
			if skipped != nil {
				skipped(ref, err)
			}
			continue
		}
		s.Data = data
		s.Dict.Delete("Filter")
		s.Dict.Delete("DecodeParms")
	}
	return nil
}

func itoa(i int64) string   { return strconv.FormatInt(i, 10) }
func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
