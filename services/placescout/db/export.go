package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"placescout/services/placescout/record"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/placescout/db")

func nullable(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func paramsFor(r record.Restaurant) UpsertRestaurantParams {
	return UpsertRestaurantParams{
		Name:            r.Name,
		Rating:          r.Rating,
		Address:         r.Address,
		Locality:        r.Locality,
		Category:        r.Category,
		ReviewCount:     r.ReviewCount,
		PriceRange:      r.PriceRange,
		ReservationLink: nullable(r.ReservationLink),
		WebsiteLink:     nullable(r.WebsiteLink),
		Phone:           nullable(r.Phone),
		ShareLink:       nullable(r.ShareLink),
	}
}

// Export writes every record in a single transaction, exporting the same
// records again leaves the database unchanged.
//
// records with a share link or a complete identity are upserted, the others
// cannot be told apart from earlier exports so the rows of that kind are
// replaced as a whole by the ones being exported.
func Export(ctx context.Context, out *sql.DB, records []record.Restaurant) error {
	ctx, span := tracer.Start(ctx, "db:Export")
	defer span.End()
	span.SetAttributes(attribute.Int("records", len(records)))

	tx, err := out.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qry := New(out).WithTx(tx)
	err = qry.DeleteUnkeyedRestaurants(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to clear unkeyed rows")
		return fmt.Errorf("failed to clear unkeyed rows: %w", err)
	}
	for i, r := range records {
		err = qry.UpsertRestaurant(ctx, paramsFor(r))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to upsert")
			return fmt.Errorf("failed to export record %d (%s): %w", i, r.Name, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to commit")
		return err
	}
	slog.DebugContext(ctx, "exported records", "count", len(records))
	return nil
}

func optional(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

// Record converts a row back into a record.
func (r Restaurant) Record() record.Restaurant {
	return record.Restaurant{
		Name:            r.Name,
		Rating:          r.Rating,
		Address:         r.Address,
		Locality:        r.Locality,
		Category:        r.Category,
		ReviewCount:     r.ReviewCount,
		PriceRange:      r.PriceRange,
		ReservationLink: optional(r.ReservationLink),
		WebsiteLink:     optional(r.WebsiteLink),
		Phone:           optional(r.Phone),
		ShareLink:       optional(r.ShareLink),
	}
}
