package record

// Restaurant is one establishment discovered by a search.
//
// optional fields are nil when the page did not expose them, they are
// written as null so that absence survives a round trip through the store.
type Restaurant struct {
	Name            string  `json:"name"`
	Rating          string  `json:"rating"`
	Address         string  `json:"address"`
	Locality        string  `json:"locality"`
	Category        string  `json:"category"`
	ReviewCount     string  `json:"review_count"`
	PriceRange      string  `json:"price_range"`
	ReservationLink *string `json:"reservation_link"`
	WebsiteLink     *string `json:"website_link"`
	Phone           *string `json:"phone"`
	ShareLink       *string `json:"share_link"`
}

// Identity is the fallback key used when a record has no share link.
type Identity struct {
	Name     string
	Address  string
	Locality string
}

func (r Restaurant) Identity() Identity {
	return Identity{Name: r.Name, Address: r.Address, Locality: r.Locality}
}

// Complete reports whether every part of the identity is known, incomplete
// identities never match anything.
func (i Identity) Complete() bool {
	return i.Name != "" && i.Address != "" && i.Locality != ""
}

func (r Restaurant) HasShareLink() bool {
	return r.ShareLink != nil && *r.ShareLink != ""
}

// Optional returns nil for an empty string.
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
