package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS layouts (
	id              VARCHAR NOT NULL,
	product         VARCHAR NOT NULL,
	product_type    VARCHAR,
	scale           DOUBLE,
	width           DOUBLE,
	height          DOUBLE,
	units           VARCHAR,
	reference_scale DOUBLE,
	angle           DOUBLE,
	created_at      TIMESTAMP NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS validation_runs (
	id             VARCHAR NOT NULL,
	source         VARCHAR,
	errors         INTEGER NOT NULL,
	fatal          INTEGER NOT NULL,
	warnings       INTEGER NOT NULL,
	field_requests INTEGER NOT NULL,
	created_at     TIMESTAMP NOT NULL
)`}

// LayoutRecord is one computed page layout.
type LayoutRecord struct {
	ID             string    `json:"id" doc:"Product instance UUID"`
	Product        string    `json:"product" doc:"Product name"`
	ProductType    string    `json:"productType" doc:"Product type"`
	Scale          float64   `json:"scale"`
	Width          float64   `json:"width" doc:"Ground width of the data frame"`
	Height         float64   `json:"height" doc:"Ground height of the data frame"`
	Units          string    `json:"units"`
	ReferenceScale float64   `json:"referenceScale"`
	Angle          float64   `json:"angle"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ValidationRecord summarizes one catalog validation run.
type ValidationRecord struct {
	ID            string    `json:"id" doc:"Validation run ID"`
	Source        string    `json:"source" doc:"Catalog file or request the run checked"`
	Errors        int       `json:"errors" doc:"Distinct problems found"`
	Fatal         int       `json:"fatal"`
	Warnings      int       `json:"warnings"`
	FieldRequests int       `json:"fieldRequests" doc:"Extent layer field lists requested"`
	CreatedAt     time.Time `json:"createdAt"`
}

// History records layouts and validation runs.
type History struct {
	db *sql.DB
}

// NewHistory creates the history tables if needed.
func NewHistory(ctx context.Context, conn *sql.DB) (*History, error) {
	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("create history tables: %w", err)
		}
	}
	return &History{db: conn}, nil
}

// RecordLayout appends a layout. A zero CreatedAt is set to now.
func (h *History) RecordLayout(ctx context.Context, r LayoutRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO layouts VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Product, r.ProductType, r.Scale, r.Width, r.Height, r.Units, r.ReferenceScale, r.Angle, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("record layout: %w", err)
	}
	return nil
}

// RecordValidation appends a validation run. A zero CreatedAt is set to now.
func (h *History) RecordValidation(ctx context.Context, r ValidationRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO validation_runs VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Source, r.Errors, r.Fatal, r.Warnings, r.FieldRequests, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("record validation: %w", err)
	}
	return nil
}

// Layouts returns the most recent layouts, newest first.
func (h *History) Layouts(ctx context.Context, limit int) ([]LayoutRecord, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, product, product_type, scale, width, height, units, reference_scale, angle, created_at
		 FROM layouts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LayoutRecord{}
	for rows.Next() {
		var r LayoutRecord
		if err := rows.Scan(&r.ID, &r.Product, &r.ProductType, &r.Scale, &r.Width, &r.Height,
			&r.Units, &r.ReferenceScale, &r.Angle, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Validations returns the most recent validation runs, newest first.
func (h *History) Validations(ctx context.Context, limit int) ([]ValidationRecord, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, source, errors, fatal, warnings, field_requests, created_at
		 FROM validation_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ValidationRecord{}
	for rows.Next() {
		var r ValidationRecord
		if err := rows.Scan(&r.ID, &r.Source, &r.Errors, &r.Fatal, &r.Warnings, &r.FieldRequests, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
