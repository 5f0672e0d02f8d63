package audit

import (
	"sort"

	"placescout/lib/textutil"
	"placescout/services/placescout/record"

	"github.com/antzucaro/matchr"
)

const DefaultThreshold = 0.92

// Pair is two stored records that are probably the same establishment even
// though the duplicate detector kept both.
type Pair struct {
	// indexes into the audited records, First < Second
	First      int
	Second     int
	Similarity float64
	// both names normalize to the same string
	SameName bool
}

func sameAddress(a, b record.Restaurant) bool {
	if a.Address == "" || b.Address == "" {
		return true
	}
	return textutil.NormalizeName(a.Address) == textutil.NormalizeName(b.Address)
}

// NearDuplicates compares the names of every two records of the same
// locality and reports those whose Jaro-Winkler similarity reaches threshold
// while their addresses agree (or one of them is unknown). records that
// share a share link are never reported, the store already rejects those.
func NearDuplicates(records []record.Restaurant, threshold float64) []Pair {
	byLocality := map[string][]int{}
	for i, r := range records {
		byLocality[r.Locality] = append(byLocality[r.Locality], i)
	}

	var pairs []Pair
	for _, indexes := range byLocality {
		for x := 0; x < len(indexes); x++ {
			a := records[indexes[x]]
			nameA := textutil.NormalizeName(a.Name)
			if nameA == "" {
				continue
			}
			for y := x + 1; y < len(indexes); y++ {
				b := records[indexes[y]]
				nameB := textutil.NormalizeName(b.Name)
				if nameB == "" || !sameAddress(a, b) {
					continue
				}
				if a.HasShareLink() && b.HasShareLink() && *a.ShareLink == *b.ShareLink {
					continue
				}

				similarity := matchr.JaroWinkler(nameA, nameB, false)
				if nameA == nameB {
					similarity = 1
				}
				if similarity < threshold {
					continue
				}
				pairs = append(pairs, Pair{
					First:      indexes[x],
					Second:     indexes[y],
					Similarity: similarity,
					SameName:   nameA == nameB,
				})
			}
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].First != pairs[j].First {
			return pairs[i].First < pairs[j].First
		}
		return pairs[i].Second < pairs[j].Second
	})
	return pairs
}
