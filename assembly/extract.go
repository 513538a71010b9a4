package assembly

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// Extraction commands accepted by --extract.
const (
	ExtractFirst        = "first"
	ExtractLast         = "last"
	ExtractExhibitFirst = "exhibit-first"
	ExtractSingle       = "single"
	ExtractPairEven     = "pair-even"
)

// ValidateExtract rejects unknown --extract values.
func ValidateExtract(commands []string) error {
	for _, c := range commands {
		switch c {
		case ExtractFirst, ExtractLast, ExtractExhibitFirst, ExtractSingle, ExtractPairEven:
		default:
			return errors.Wrapf(ErrConfig, "--extract %q, allowed: first last exhibit-first single pair-even", c)
		}
	}
	return nil
}

// ExtractPages resolves extraction commands into the pages to keep and
// whether they are kept as even/odd pairs (the default).
func ExtractPages(commands []string, basePages int, exhibitFirst []int) (keep []int, even bool) {
	even = true
	for _, c := range commands {
		switch c {
		case ExtractFirst:
			if basePages > 0 {
				keep = append(keep, 0)
			}
		case ExtractLast:
			if basePages > 0 {
				keep = append(keep, basePages-1)
			}
		case ExtractExhibitFirst:
			for _, p := range exhibitFirst {
				if p >= 0 {
					keep = append(keep, p)
				}
			}
		case ExtractSingle:
			even = false
		case ExtractPairEven:
			even = true
		}
	}
	return keep, even
}

// PagesToRemove returns the zero-based pages to delete from a document of
// total pages so that only keep remains, highest page first. In even mode
// each kept page takes its even/odd partner along: page p keeps the pair
// starting at p&^1.
func PagesToRemove(total int, keep []int, even bool) []int {
	pages := uniqueDescending(keep, total)
	var remove []int
	last := total
	if even {
		for _, p := range pages {
			if last > p {
				for last--; last >= (p+2)&^1; last-- {
					remove = append(remove, last)
				}
			}
			last &^= 1
		}
	} else {
		for _, p := range pages {
			for last--; last > p; last-- {
				remove = append(remove, last)
			}
		}
	}
	for last--; last >= 0; last-- {
		remove = append(remove, last)
	}
	return remove
}

func uniqueDescending(pages []int, total int) []int {
	seen := make(map[int]bool, len(pages))
	var out []int
	for _, p := range pages {
		if p < 0 || p >= total || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
