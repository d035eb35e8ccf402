package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

const plotRowSelect = `
SELECT
    p.id, p.name, p.parent_plot_id, p.location, p.size_sqft, p.grass_type, p.notes,
    p.polygon_coordinates, p.center_lat, p.center_lng, p.created_by, p.created_at, p.updated_at,
    COALESCE(parent.name, '') AS parent_plot_name,
    COALESCE(NULLIF(TRIM(u.first_name || ' ' || u.last_name), ''), u.email, '') AS created_by_name,
    (SELECT COUNT(*) FROM treatment_plots tp WHERE tp.plot_id = p.id) AS treatment_count,
    (SELECT COUNT(*) FROM plots c WHERE c.parent_plot_id = p.id) AS subplot_count
FROM plots p
LEFT JOIN plots parent ON parent.id = p.parent_plot_id
LEFT JOIN users u ON u.id = p.created_by`

// PlotRow is a plot joined with its parent name, creator and counts.
type PlotRow struct {
	Plot
	ParentPlotName string `json:"parent_plot_name"`
	CreatedByName  string `json:"created_by_name"`
	TreatmentCount int64  `json:"treatment_count"`
	SubplotCount   int64  `json:"subplot_count"`
}

func scanPlotRow(row interface{ Scan(...interface{}) error }) (PlotRow, error) {
	var i PlotRow
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.ParentPlotID,
		&i.Location,
		&i.SizeSqft,
		&i.GrassType,
		&i.Notes,
		&i.PolygonCoordinates,
		&i.CenterLat,
		&i.CenterLng,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.ParentPlotName,
		&i.CreatedByName,
		&i.TreatmentCount,
		&i.SubplotCount,
	)
	return i, err
}

const listPlots = `-- name: ListPlots :many` + plotRowSelect + `
ORDER BY p.name`

// ListPlots returns every plot ordered by name.
func (q *Queries) ListPlots(ctx context.Context) ([]PlotRow, error) {
	rows, err := q.db.QueryContext(ctx, listPlots)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PlotRow
	for rows.Next() {
		i, err := scanPlotRow(rows)
		if err != nil {
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

const getPlot = `-- name: GetPlot :one` + plotRowSelect + `
WHERE p.id = $1`

func (q *Queries) GetPlot(ctx context.Context, id int64) (PlotRow, error) {
	return scanPlotRow(q.db.QueryRowContext(ctx, getPlot, id))
}

const createPlot = `-- name: CreatePlot :one
INSERT INTO plots (
    name, parent_plot_id, location, size_sqft, grass_type, notes,
    polygon_coordinates, center_lat, center_lng, created_by
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id`

type CreatePlotParams struct {
	Name               string                `json:"name"`
	ParentPlotID       sql.NullInt64         `json:"parent_plot_id"`
	Location           string                `json:"location"`
	SizeSqft           sql.NullFloat64       `json:"size_sqft"`
	GrassType          string                `json:"grass_type"`
	Notes              string                `json:"notes"`
	PolygonCoordinates pqtype.NullRawMessage `json:"polygon_coordinates"`
	CenterLat          sql.NullFloat64       `json:"center_lat"`
	CenterLng          sql.NullFloat64       `json:"center_lng"`
	CreatedBy          uuid.NullUUID         `json:"created_by"`
}

func (q *Queries) CreatePlot(ctx context.Context, arg CreatePlotParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createPlot,
		arg.Name,
		arg.ParentPlotID,
		arg.Location,
		arg.SizeSqft,
		arg.GrassType,
		arg.Notes,
		arg.PolygonCoordinates,
		arg.CenterLat,
		arg.CenterLng,
		arg.CreatedBy,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updatePlot = `-- name: UpdatePlot :execrows
UPDATE plots SET
    name = $2,
    parent_plot_id = $3,
    location = $4,
    size_sqft = $5,
    grass_type = $6,
    notes = $7,
    polygon_coordinates = $8,
    center_lat = $9,
    center_lng = $10,
    updated_at = NOW()
WHERE id = $1`

type UpdatePlotParams struct {
	ID                 int64                 `json:"id"`
	Name               string                `json:"name"`
	ParentPlotID       sql.NullInt64         `json:"parent_plot_id"`
	Location           string                `json:"location"`
	SizeSqft           sql.NullFloat64       `json:"size_sqft"`
	GrassType          string                `json:"grass_type"`
	Notes              string                `json:"notes"`
	PolygonCoordinates pqtype.NullRawMessage `json:"polygon_coordinates"`
	CenterLat          sql.NullFloat64       `json:"center_lat"`
	CenterLng          sql.NullFloat64       `json:"center_lng"`
}

func (q *Queries) UpdatePlot(ctx context.Context, arg UpdatePlotParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updatePlot,
		arg.ID,
		arg.Name,
		arg.ParentPlotID,
		arg.Location,
		arg.SizeSqft,
		arg.GrassType,
		arg.Notes,
		arg.PolygonCoordinates,
		arg.CenterLat,
		arg.CenterLng,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deletePlot = `-- name: DeletePlot :execrows
DELETE FROM plots WHERE id = $1`

// DeletePlot removes a plot; sub-plots and treatment links cascade.
func (q *Queries) DeletePlot(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deletePlot, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countExistingPlots = `-- name: CountExistingPlots :one
SELECT COUNT(*) FROM plots WHERE id = ANY($1::bigint[])`

func (q *Queries) CountExistingPlots(ctx context.Context, ids []int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countExistingPlots, pq.Array(ids))
	var count int64
	err := row.Scan(&count)
	return count, err
}
