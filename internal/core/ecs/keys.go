package ecs

import (
	"sort"

	"golang.org/x/text/cases"
)

// FoldKey is the canonical form of a property or variable key. Region
// modifiers are stored under folded keys, so every lookup folds too.
func FoldKey(key string) string {
	for i := 0; i < len(key); i++ {
		if c := key[i]; c >= 0x80 || (c >= 'A' && c <= 'Z') {
			return cases.Fold().String(key)
		}
	}
	return key
}

// lookupFolded finds key in vars by exact match first, then by folded
// comparison. Ties between differently cased names go to the smallest.
func lookupFolded(vars map[string]any, key string) (any, bool) {
	if v, ok := vars[key]; ok {
		return v, true
	}
	want := FoldKey(key)
	var names []string
	for k := range vars {
		if FoldKey(k) == want {
			names = append(names, k)
		}
	}
	if len(names) == 0 {
		return nil, false
	}
	sort.Strings(names)
	return vars[names[0]], true
}

// Var returns the entity variable named key, ignoring case.
func (e *Entity) Var(key string) (any, bool) {
	return lookupFolded(e.Vars, key)
}
