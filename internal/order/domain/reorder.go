package domain

import (
	"regexp"
	"strconv"

	catalog "github.com/dmehra2102/campus-cafe/internal/catalog/domain"
)

// linePattern reads the quantity, name and optional size from a line
// description. Milk, syrup and note segments are matched and discarded; they
// may span lines in descriptions written before notes were flattened.
var linePattern = regexp.MustCompile(`(?s)^(\d+)x (.+?)(?: \(([SML])\))?(?:, .*)?$`)

type ParsedLine struct {
	Quantity int
	Name     string
	Size     catalog.Size
}

func ParseLine(s string) (ParsedLine, bool) {
	m := linePattern.FindStringSubmatch(s)
	if m == nil {
		return ParsedLine{}, false
	}
	qty, err := strconv.Atoi(m[1])
	if err != nil || qty < 1 {
		return ParsedLine{}, false
	}
	return ParsedLine{Quantity: qty, Name: m[2], Size: catalog.Size(m[3])}, true
}

// ReorderResult holds the rebuilt lines and the descriptions that could not be
// rebuilt, either malformed or no longer on the menu.
type ReorderResult struct {
	Lines   []CartLine
	Dropped []string
}

// Reorder rebuilds cart lines from an order's text descriptions against the
// location's current menu. Customizations are not carried over: a customized
// drink comes back as its base item in the same size.
func Reorder(o Order, menu []catalog.MenuItem) ReorderResult {
	byName := make(map[string]catalog.MenuItem, len(menu))
	for _, item := range menu {
		if _, dup := byName[item.Name]; !dup {
			byName[item.Name] = item
		}
	}

	var res ReorderResult
	for _, desc := range o.Items {
		p, ok := ParseLine(desc)
		if !ok {
			res.Dropped = append(res.Dropped, desc)
			continue
		}
		item, ok := byName[p.Name]
		if !ok {
			res.Dropped = append(res.Dropped, desc)
			continue
		}
		res.Lines = append(res.Lines, CartLine{Item: item, Quantity: p.Quantity, Size: p.Size})
	}
	return res
}
