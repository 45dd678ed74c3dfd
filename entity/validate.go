package entity

import (
	"fmt"
	"sort"

	"github.com/agnivade/levenshtein"
)

// Validate checks the entity set for configuration errors that must surface
// at schema-build time: missing primary keys, dangling association targets,
// and field-name collisions. The first problem found is returned.
func Validate(set Set) error {
	for _, ent := range set.Entities() {
		if err := validateEntity(set, ent); err != nil {
			return err
		}
	}
	return nil
}

func validateEntity(set Set, ent *Entity) error {
	if ent.Name == "" {
		return fmt.Errorf("entity with empty name")
	}
	if len(ent.Attributes) == 0 {
		return fmt.Errorf("entity %s: no attributes defined", ent.Name)
	}
	pk, ok := ent.PrimaryKey()
	if !ok {
		return fmt.Errorf("entity %s: no primary key attribute", ent.Name)
	}
	if pk.IsSensitive {
		return fmt.Errorf("entity %s: primary key %s cannot be sensitive", ent.Name, pk.Name)
	}

	seen := map[string]string{}
	for _, attr := range ent.Attributes {
		if attr.Name == "" {
			return fmt.Errorf("entity %s: attribute with empty name", ent.Name)
		}
		if prev, dup := seen[attr.Name]; dup {
			return fmt.Errorf("entity %s: field %s declared twice (%s)", ent.Name, attr.Name, prev)
		}
		seen[attr.Name] = "attribute"
	}
	for _, assoc := range ent.Associations {
		if assoc.Name == "" {
			return fmt.Errorf("entity %s: association with empty name", ent.Name)
		}
		if prev, dup := seen[assoc.Name]; dup {
			return fmt.Errorf("entity %s: field %s declared twice (%s)", ent.Name, assoc.Name, prev)
		}
		seen[assoc.Name] = "association"
		if _, ok := set[assoc.Target]; !ok || assoc.Target == "" {
			msg := fmt.Sprintf("entity %s: association %s targets unknown entity %q", ent.Name, assoc.Name, assoc.Target)
			if hint := nearestName(set, assoc.Target); hint != "" {
				msg += fmt.Sprintf(" (did you mean %q?)", hint)
			}
			return fmt.Errorf("%s", msg)
		}
	}
	return nil
}

// nearestName finds the closest defined entity name within a small edit
// distance, for friendlier dangling-target errors.
func nearestName(set Set, target string) string {
	if target == "" {
		return ""
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)

	best, bestDist := "", 3
	for _, name := range names {
		if d := levenshtein.ComputeDistance(target, name); d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}
