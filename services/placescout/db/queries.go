package db

import (
	"context"
	"database/sql"
)

type Restaurant struct {
	ID              int64
	Name            string
	Rating          string
	Address         string
	Locality        string
	Category        string
	ReviewCount     string
	PriceRange      string
	ReservationLink sql.NullString
	WebsiteLink     sql.NullString
	Phone           sql.NullString
	ShareLink       sql.NullString
}

type UpsertRestaurantParams struct {
	Name            string
	Rating          string
	Address         string
	Locality        string
	Category        string
	ReviewCount     string
	PriceRange      string
	ReservationLink sql.NullString
	WebsiteLink     sql.NullString
	Phone           sql.NullString
	ShareLink       sql.NullString
}

const restaurantColumns = `name, rating, address, locality, category, review_count,
    price_range, reservation_link, website_link, phone, share_link`

const updateRestaurant = `do update set
    name = excluded.name,
    rating = excluded.rating,
    address = excluded.address,
    locality = excluded.locality,
    category = excluded.category,
    review_count = excluded.review_count,
    price_range = excluded.price_range,
    reservation_link = excluded.reservation_link,
    website_link = excluded.website_link,
    phone = excluded.phone`

const upsertLinkedRestaurant = `insert into restaurant (` + restaurantColumns + `)
values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
on conflict (share_link) ` + updateRestaurant

const upsertIdentifiedRestaurant = `insert into restaurant (` + restaurantColumns + `)
values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
on conflict (name, address, locality)
where share_link is null and name <> '' and address <> '' and locality <> '' ` + updateRestaurant

const insertRestaurant = `insert into restaurant (` + restaurantColumns + `)
values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (p UpsertRestaurantParams) args() []interface{} {
	return []interface{}{
		p.Name,
		p.Rating,
		p.Address,
		p.Locality,
		p.Category,
		p.ReviewCount,
		p.PriceRange,
		p.ReservationLink,
		p.WebsiteLink,
		p.Phone,
		p.ShareLink,
	}
}

// Keyed reports whether the row can be matched against an existing one, by
// its share link or else by a complete name, address and locality.
func (p UpsertRestaurantParams) Keyed() bool {
	if p.ShareLink.Valid {
		return true
	}
	return p.Name != "" && p.Address != "" && p.Locality != ""
}

// UpsertRestaurant inserts a restaurant or updates the row with the same
// share link, or with the same name, address and locality when it has none.
// rows that are not Keyed are always inserted.
func (q *Queries) UpsertRestaurant(ctx context.Context, arg UpsertRestaurantParams) error {
	query := insertRestaurant
	switch {
	case arg.ShareLink.Valid:
		query = upsertLinkedRestaurant
	case arg.Keyed():
		query = upsertIdentifiedRestaurant
	}
	_, err := q.db.ExecContext(ctx, query, arg.args()...)
	return err
}

const deleteUnkeyedRestaurants = `delete from restaurant
where share_link is null and (name = '' or address = '' or locality = '')`

// DeleteUnkeyedRestaurants removes the rows no upsert can match.
func (q *Queries) DeleteUnkeyedRestaurants(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteUnkeyedRestaurants)
	return err
}

const listRestaurants = `select id, ` + restaurantColumns + `
from restaurant
order by id`

func (q *Queries) ListRestaurants(ctx context.Context) ([]Restaurant, error) {
	rows, err := q.db.QueryContext(ctx, listRestaurants)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Restaurant
	for rows.Next() {
		var i Restaurant
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Rating,
			&i.Address,
			&i.Locality,
			&i.Category,
			&i.ReviewCount,
			&i.PriceRange,
			&i.ReservationLink,
			&i.WebsiteLink,
			&i.Phone,
			&i.ShareLink,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countRestaurantsByLocality = `select locality, count(*)
from restaurant
group by locality
order by locality`

type CountRestaurantsByLocalityRow struct {
	Locality string
	Count    int64
}

func (q *Queries) CountRestaurantsByLocality(ctx context.Context) ([]CountRestaurantsByLocalityRow, error) {
	rows, err := q.db.QueryContext(ctx, countRestaurantsByLocality)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountRestaurantsByLocalityRow
	for rows.Next() {
		var i CountRestaurantsByLocalityRow
		if err := rows.Scan(&i.Locality, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
