package store

import "placescout/services/placescout/record"

// IsDuplicate reports whether r is already stored.
//
// records with a share link are identified by it alone. records without one
// fall back to an exact match on name, address and locality, where every
// part has to be known.
func (s *Store) IsDuplicate(r record.Restaurant) bool {
	if r.HasShareLink() {
		_, known := s.knownLinks[*r.ShareLink]
		return known
	}
	id := r.Identity()
	if !id.Complete() {
		return false
	}
	_, known := s.identities[id]
	return known
}

// KnowsLink reports whether link is in the known-links index.
func (s *Store) KnowsLink(link string) bool {
	_, known := s.knownLinks[link]
	return known
}
