package helper

import (
	"sort"

	"kennel-portal/models"
)

// GroupLitters groups puppies by litter, preserving the order in which each
// litter is first seen. Puppies without a litter end up in a trailing
// "Unassigned" group. Within a group puppies are ordered by ready date, then name.
func GroupLitters(puppies []models.Puppy) []models.Litter {
	if len(puppies) == 0 {
		return []models.Litter{}
	}

	const unassigned = ""
	index := make(map[string]int)
	var litters []models.Litter
	var orphans []models.Puppy

	for _, p := range puppies {
		if p.LitterID == unassigned {
			orphans = append(orphans, p)
			continue
		}
		i, ok := index[p.LitterID]
		if !ok {
			name := p.LitterName
			if name == "" {
				name = "Litter " + p.LitterID
			}
			litters = append(litters, models.Litter{ID: p.LitterID, Name: name, BornOn: p.LitterBornOn})
			i = len(litters) - 1
			index[p.LitterID] = i
		}
		litters[i].Puppies = append(litters[i].Puppies, p)
	}

	if len(orphans) > 0 {
		litters = append(litters, models.Litter{Name: "Unassigned", Puppies: orphans})
	}

	for i := range litters {
		sortPuppies(litters[i].Puppies)
	}
	return litters
}

func sortPuppies(ps []models.Puppy) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i].ReadyDate, ps[j].ReadyDate
		switch {
		case a == nil && b == nil:
			return ps[i].Name < ps[j].Name
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		default:
			return ps[i].Name < ps[j].Name
		}
	})
}
