package store

import (
	"encoding/json"

	"placescout/services/placescout/record"
)

// document is one entry of the json document. stores written by the first
// version of the scraper used french keys, they are read as a fallback for
// the current ones and rewritten with the current keys on the next append.
type document struct {
	record.Restaurant

	Nom             string  `json:"nom"`
	Note            string  `json:"note"`
	Adresse         string  `json:"adresse"`
	Ville           string  `json:"ville"`
	Categorie       string  `json:"categorie"`
	NombreAvis      string  `json:"nombre_avis"`
	Prix            string  `json:"prix"`
	LienReservation *string `json:"lien_reservation"`
	LienSite        *string `json:"lien_site"`
	Telephone       *string `json:"telephone"`
	LienPartage     *string `json:"lien_partage"`
}

func orString(current *string, legacy string) {
	if *current == "" {
		*current = legacy
	}
}

func orLink(current **string, legacy *string) {
	if *current == nil {
		*current = legacy
	}
}

func (d document) restaurant() record.Restaurant {
	r := d.Restaurant
	orString(&r.Name, d.Nom)
	orString(&r.Rating, d.Note)
	orString(&r.Address, d.Adresse)
	orString(&r.Locality, d.Ville)
	orString(&r.Category, d.Categorie)
	orString(&r.ReviewCount, d.NombreAvis)
	orString(&r.PriceRange, d.Prix)
	orLink(&r.ReservationLink, d.LienReservation)
	orLink(&r.WebsiteLink, d.LienSite)
	orLink(&r.Phone, d.Telephone)
	orLink(&r.ShareLink, d.LienPartage)
	return r
}

func decode(contents []byte) ([]record.Restaurant, error) {
	var docs []document
	err := json.Unmarshal(contents, &docs)
	if err != nil {
		return nil, err
	}
	records := make([]record.Restaurant, len(docs))
	for i, d := range docs {
		records[i] = d.restaurant()
	}
	return records, nil
}
