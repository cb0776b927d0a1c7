package engine

import (
	"fmt"
	"strings"
)

// Views selects which memory capabilities an Instance exposes. Different
// solver builds surface different subsets; restricting them exercises the
// bridge fallbacks against a real runtime.
type Views uint8

const (
	ViewBulk Views = 1 << iota
	ViewUnsigned
	ViewSigned
	ViewBuffer

	ViewAll = ViewBulk | ViewUnsigned | ViewSigned | ViewBuffer
)

var viewNames = []struct {
	name string
	view Views
}{
	{"bulk", ViewBulk},
	{"unsigned", ViewUnsigned},
	{"signed", ViewSigned},
	{"buffer", ViewBuffer},
}

// ParseViews converts capability names into a Views mask. An empty list or
// "all" selects every capability.
func ParseViews(names []string) (Views, error) {
	if len(names) == 0 {
		return ViewAll, nil
	}
	var v Views
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "all" {
			v |= ViewAll
			continue
		}
		found := false
		for _, vn := range viewNames {
			if vn.name == name {
				v |= vn.view
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown memory view %q", raw)
		}
	}
	return v, nil
}

// Has reports whether every capability in o is enabled.
func (v Views) Has(o Views) bool {
	return v&o == o
}

func (v Views) String() string {
	if v == 0 {
		return "none"
	}
	var parts []string
	for _, vn := range viewNames {
		if v.Has(vn.view) {
			parts = append(parts, vn.name)
		}
	}
	return strings.Join(parts, "|")
}
