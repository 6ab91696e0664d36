package filter

import (
	"strings"

	"github.com/minios-linux/datrans/record"
)

// ContainsFailMarker reports whether text still carries the fail marker.
func ContainsFailMarker(text, marker string) bool {
	if marker == "" {
		return false
	}
	return strings.Contains(text, marker)
}

// ValueContainsMarker checks a text or any element of a list.
func ValueContainsMarker(v record.Value, marker string) bool {
	switch v.Kind {
	case record.KindText:
		return ContainsFailMarker(v.Text, marker)
	case record.KindList:
		for _, s := range v.List {
			if ContainsFailMarker(s, marker) {
				return true
			}
		}
	}
	return false
}
