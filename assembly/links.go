package assembly

import (
	"github.com/wudi/legalkit/pdf"
)

// RetargetLinks rewrites URI links on the first basePages pages of doc into
// GoTo actions when the URI belongs to an added entry. It returns the number
// of links changed.
func RetargetLinks(doc *pdf.Document, basePages int, entries []*Entry) int {
	targets := make(map[string]int)
	for _, e := range entries {
		if e.URL != "" && e.Internal >= 0 {
			targets[e.URL] = e.Internal
		}
	}
	if len(targets) == 0 {
		return 0
	}
	changed := 0
	for i := 0; i < basePages && i < doc.PageCount(); i++ {
		page, err := doc.Page(i)
		if err != nil {
			continue
		}
		for _, link := range page.Links() {
			uri, ok := link.URI()
			if !ok {
				continue
			}
			target, ok := targets[uri]
			if !ok {
				continue
			}
			dest, err := doc.Page(target)
			if err != nil {
				continue
			}
			link.SetGoTo(dest)
			changed++
		}
	}
	return changed
}
