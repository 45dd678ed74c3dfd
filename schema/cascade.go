package schema

import (
	"fmt"
	"strings"

	"github.com/autogql/autogql/entity"
	"github.com/autogql/autogql/store"
)

// Cascade describes one HasMany collection reachable from an entity, with
// the collections reachable beneath it. Mutations use the cascade set to
// know which nested collections are written together with their owner.
type Cascade struct {
	Association string
	Entity      string
	Nested      []Cascade
}

// DeepAssociations flattens every HasMany chain under the named entity,
// recursively. BelongsTo and BelongsToMany edges are not eligible for
// cascade writes and are skipped. A HasMany cycle is a configuration error:
// it would make nested creates unbounded, so the build fails instead.
func DeepAssociations(set entity.Set, name string) ([]Cascade, error) {
	return deepAssociations(set, name, []string{name})
}

func deepAssociations(set entity.Set, name string, trail []string) ([]Cascade, error) {
	ent, ok := set[name]
	if !ok || ent == nil {
		return nil, fmt.Errorf("schema: unknown entity %s in cascade", name)
	}
	hasManys := ent.HasManys()
	if len(hasManys) == 0 {
		return nil, nil
	}
	out := make([]Cascade, 0, len(hasManys))
	for _, assoc := range hasManys {
		for _, seen := range trail {
			if seen == assoc.Target {
				return nil, fmt.Errorf("schema: cyclic hasMany chain %s -> %s",
					strings.Join(trail, " -> "), assoc.Target)
			}
		}
		nested, err := deepAssociations(set, assoc.Target, append(trail, assoc.Target))
		if err != nil {
			return nil, err
		}
		out = append(out, Cascade{
			Association: assoc.Name,
			Entity:      assoc.Target,
			Nested:      nested,
		})
	}
	return out, nil
}

// includesOf converts a cascade set into the store's include tree.
func includesOf(cascades []Cascade) []store.Include {
	if len(cascades) == 0 {
		return nil
	}
	out := make([]store.Include, 0, len(cascades))
	for _, c := range cascades {
		out = append(out, store.Include{
			Association: c.Association,
			Entity:      c.Entity,
			Nested:      includesOf(c.Nested),
		})
	}
	return out
}
