package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const treatmentRowSelect = `
SELECT
    t.id, t.treatment_type,
    to_char(t.date, 'YYYY-MM-DD') AS date,
    COALESCE(to_char(t.time, 'HH24:MI'), '') AS time,
    t.notes, t.applied_by,
    COALESCE(NULLIF(TRIM(u.first_name || ' ' || u.last_name), ''), u.email, '') AS applied_by_name,
    t.created_at, t.updated_at,
    COALESCE((SELECT array_agg(tp.plot_id ORDER BY tp.plot_id)
              FROM treatment_plots tp WHERE tp.treatment_id = t.id), '{}')::bigint[] AS plot_ids,
    COALESCE((SELECT array_agg(p.name ORDER BY tp.plot_id)
              FROM treatment_plots tp JOIN plots p ON p.id = tp.plot_id
              WHERE tp.treatment_id = t.id), '{}')::text[] AS plot_names,
    w.amount_inches, w.duration_minutes, w.method,
    f.product_name, f.npk_ratio, f.amount, f.amount_unit, f.rate_per_1000sqft,
    c.chemical_type, c.product_name, c.active_ingredient, c.amount, c.amount_unit,
    c.rate_per_1000sqft, c.target_pest,
    m.height_inches, m.clippings_removed, m.mower_type, m.pattern
FROM treatments t
LEFT JOIN users u ON u.id = t.applied_by
LEFT JOIN water_treatments w ON w.treatment_id = t.id
LEFT JOIN fertilizer_treatments f ON f.treatment_id = t.id
LEFT JOIN chemical_treatments c ON c.treatment_id = t.id
LEFT JOIN mowing_treatments m ON m.treatment_id = t.id`

// TreatmentRow is a treatment joined with its plots, applier and whichever
// details row exists. Details columns are null for the other types.
type TreatmentRow struct {
	ID            int64          `json:"id"`
	TreatmentType string         `json:"treatment_type"`
	Date          string         `json:"date"`
	Time          string         `json:"time"`
	Notes         string         `json:"notes"`
	AppliedBy     uuid.NullUUID  `json:"applied_by"`
	AppliedByName string         `json:"applied_by_name"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	PlotIDs       pq.Int64Array  `json:"plot_ids"`
	PlotNames     pq.StringArray `json:"plot_names"`

	WaterAmountInches    sql.NullFloat64 `json:"water_amount_inches"`
	WaterDurationMinutes sql.NullInt64   `json:"water_duration_minutes"`
	WaterMethod          sql.NullString  `json:"water_method"`

	FertilizerProductName     sql.NullString  `json:"fertilizer_product_name"`
	FertilizerNpkRatio        sql.NullString  `json:"fertilizer_npk_ratio"`
	FertilizerAmount          sql.NullFloat64 `json:"fertilizer_amount"`
	FertilizerAmountUnit      sql.NullString  `json:"fertilizer_amount_unit"`
	FertilizerRatePer1000sqft sql.NullFloat64 `json:"fertilizer_rate_per_1000sqft"`

	ChemicalType             sql.NullString  `json:"chemical_type"`
	ChemicalProductName      sql.NullString  `json:"chemical_product_name"`
	ChemicalActiveIngredient sql.NullString  `json:"chemical_active_ingredient"`
	ChemicalAmount           sql.NullFloat64 `json:"chemical_amount"`
	ChemicalAmountUnit       sql.NullString  `json:"chemical_amount_unit"`
	ChemicalRatePer1000sqft  sql.NullFloat64 `json:"chemical_rate_per_1000sqft"`
	ChemicalTargetPest       sql.NullString  `json:"chemical_target_pest"`

	MowingHeightInches     sql.NullFloat64 `json:"mowing_height_inches"`
	MowingClippingsRemoved sql.NullBool    `json:"mowing_clippings_removed"`
	MowingMowerType        sql.NullString  `json:"mowing_mower_type"`
	MowingPattern          sql.NullString  `json:"mowing_pattern"`
}

func scanTreatmentRow(row interface{ Scan(...interface{}) error }) (TreatmentRow, error) {
	var i TreatmentRow
	err := row.Scan(
		&i.ID,
		&i.TreatmentType,
		&i.Date,
		&i.Time,
		&i.Notes,
		&i.AppliedBy,
		&i.AppliedByName,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.PlotIDs,
		&i.PlotNames,
		&i.WaterAmountInches,
		&i.WaterDurationMinutes,
		&i.WaterMethod,
		&i.FertilizerProductName,
		&i.FertilizerNpkRatio,
		&i.FertilizerAmount,
		&i.FertilizerAmountUnit,
		&i.FertilizerRatePer1000sqft,
		&i.ChemicalType,
		&i.ChemicalProductName,
		&i.ChemicalActiveIngredient,
		&i.ChemicalAmount,
		&i.ChemicalAmountUnit,
		&i.ChemicalRatePer1000sqft,
		&i.ChemicalTargetPest,
		&i.MowingHeightInches,
		&i.MowingClippingsRemoved,
		&i.MowingMowerType,
		&i.MowingPattern,
	)
	return i, err
}

const listTreatments = `-- name: ListTreatments :many` + treatmentRowSelect + `
WHERE ($1::text = '' OR t.treatment_type = $1::text)
  AND ($2::text = '' OR to_char(t.date, 'YYYY-MM-DD') = $2::text)
  AND ($3::bigint IS NULL OR EXISTS (
        SELECT 1 FROM treatment_plots tp WHERE tp.treatment_id = t.id AND tp.plot_id = $3::bigint))
  AND ($4::text = '' OR t.notes ILIKE '%' || $4::text || '%' OR EXISTS (
        SELECT 1 FROM treatment_plots tp JOIN plots p ON p.id = tp.plot_id
        WHERE tp.treatment_id = t.id AND p.name ILIKE '%' || $4::text || '%'))
ORDER BY t.date DESC, t.time DESC, t.id DESC`

type ListTreatmentsParams struct {
	TreatmentType string        `json:"treatment_type"`
	Date          string        `json:"date"`
	PlotID        sql.NullInt64 `json:"plot_id"`
	Search        string        `json:"search"`
}

// ListTreatments returns treatments newest first. Empty parameters do not
// constrain the result.
func (q *Queries) ListTreatments(ctx context.Context, arg ListTreatmentsParams) ([]TreatmentRow, error) {
	rows, err := q.db.QueryContext(ctx, listTreatments,
		arg.TreatmentType,
		arg.Date,
		arg.PlotID,
		arg.Search,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TreatmentRow
	for rows.Next() {
		i, err := scanTreatmentRow(rows)
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

const getTreatment = `-- name: GetTreatment :one` + treatmentRowSelect + `
WHERE t.id = $1`

func (q *Queries) GetTreatment(ctx context.Context, id int64) (TreatmentRow, error) {
	return scanTreatmentRow(q.db.QueryRowContext(ctx, getTreatment, id))
}

const createTreatment = `-- name: CreateTreatment :one
INSERT INTO treatments (treatment_type, date, time, notes, applied_by)
VALUES ($1, $2::date, NULLIF($3::text, '')::time, $4, $5)
RETURNING id`

type CreateTreatmentParams struct {
	TreatmentType string        `json:"treatment_type"`
	Date          string        `json:"date"`
	Time          string        `json:"time"`
	Notes         string        `json:"notes"`
	AppliedBy     uuid.NullUUID `json:"applied_by"`
}

func (q *Queries) CreateTreatment(ctx context.Context, arg CreateTreatmentParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createTreatment,
		arg.TreatmentType,
		arg.Date,
		arg.Time,
		arg.Notes,
		arg.AppliedBy,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateTreatment = `-- name: UpdateTreatment :execrows
UPDATE treatments SET
    treatment_type = $2,
    date = $3::date,
    time = NULLIF($4::text, '')::time,
    notes = $5,
    updated_at = NOW()
WHERE id = $1`

type UpdateTreatmentParams struct {
	ID            int64  `json:"id"`
	TreatmentType string `json:"treatment_type"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Notes         string `json:"notes"`
}

func (q *Queries) UpdateTreatment(ctx context.Context, arg UpdateTreatmentParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateTreatment,
		arg.ID,
		arg.TreatmentType,
		arg.Date,
		arg.Time,
		arg.Notes,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteTreatment = `-- name: DeleteTreatment :execrows
DELETE FROM treatments WHERE id = $1`

func (q *Queries) DeleteTreatment(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTreatment, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// =============================================================================
// Treatment Plots
// =============================================================================

const setTreatmentPlots = `-- name: SetTreatmentPlots :exec
INSERT INTO treatment_plots (treatment_id, plot_id)
SELECT $1, unnest($2::bigint[])
ON CONFLICT DO NOTHING`

func (q *Queries) SetTreatmentPlots(ctx context.Context, treatmentID int64, plotIDs []int64) error {
	_, err := q.db.ExecContext(ctx, setTreatmentPlots, treatmentID, pq.Array(plotIDs))
	return err
}

const clearTreatmentPlots = `-- name: ClearTreatmentPlots :exec
DELETE FROM treatment_plots WHERE treatment_id = $1`

func (q *Queries) ClearTreatmentPlots(ctx context.Context, treatmentID int64) error {
	_, err := q.db.ExecContext(ctx, clearTreatmentPlots, treatmentID)
	return err
}

// =============================================================================
// Details
// =============================================================================

const clearTreatmentDetails = `-- name: ClearTreatmentDetails :exec
WITH w AS (DELETE FROM water_treatments WHERE treatment_id = $1),
     f AS (DELETE FROM fertilizer_treatments WHERE treatment_id = $1),
     c AS (DELETE FROM chemical_treatments WHERE treatment_id = $1)
DELETE FROM mowing_treatments WHERE treatment_id = $1`

func (q *Queries) ClearTreatmentDetails(ctx context.Context, treatmentID int64) error {
	_, err := q.db.ExecContext(ctx, clearTreatmentDetails, treatmentID)
	return err
}

const createWaterDetails = `-- name: CreateWaterDetails :exec
INSERT INTO water_treatments (treatment_id, amount_inches, duration_minutes, method)
VALUES ($1, $2, $3, $4)`

type CreateWaterDetailsParams struct {
	TreatmentID     int64         `json:"treatment_id"`
	AmountInches    float64       `json:"amount_inches"`
	DurationMinutes sql.NullInt64 `json:"duration_minutes"`
	Method          string        `json:"method"`
}

func (q *Queries) CreateWaterDetails(ctx context.Context, arg CreateWaterDetailsParams) error {
	_, err := q.db.ExecContext(ctx, createWaterDetails,
		arg.TreatmentID,
		arg.AmountInches,
		arg.DurationMinutes,
		arg.Method,
	)
	return err
}

const createFertilizerDetails = `-- name: CreateFertilizerDetails :exec
INSERT INTO fertilizer_treatments (treatment_id, product_name, npk_ratio, amount, amount_unit, rate_per_1000sqft)
VALUES ($1, $2, $3, $4, $5, $6)`

type CreateFertilizerDetailsParams struct {
	TreatmentID     int64           `json:"treatment_id"`
	ProductName     string          `json:"product_name"`
	NpkRatio        string          `json:"npk_ratio"`
	Amount          float64         `json:"amount"`
	AmountUnit      string          `json:"amount_unit"`
	RatePer1000sqft sql.NullFloat64 `json:"rate_per_1000sqft"`
}

func (q *Queries) CreateFertilizerDetails(ctx context.Context, arg CreateFertilizerDetailsParams) error {
	_, err := q.db.ExecContext(ctx, createFertilizerDetails,
		arg.TreatmentID,
		arg.ProductName,
		arg.NpkRatio,
		arg.Amount,
		arg.AmountUnit,
		arg.RatePer1000sqft,
	)
	return err
}

const createChemicalDetails = `-- name: CreateChemicalDetails :exec
INSERT INTO chemical_treatments (
    treatment_id, chemical_type, product_name, active_ingredient,
    amount, amount_unit, rate_per_1000sqft, target_pest
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

type CreateChemicalDetailsParams struct {
	TreatmentID      int64           `json:"treatment_id"`
	ChemicalType     string          `json:"chemical_type"`
	ProductName      string          `json:"product_name"`
	ActiveIngredient string          `json:"active_ingredient"`
	Amount           float64         `json:"amount"`
	AmountUnit       string          `json:"amount_unit"`
	RatePer1000sqft  sql.NullFloat64 `json:"rate_per_1000sqft"`
	TargetPest       string          `json:"target_pest"`
}

func (q *Queries) CreateChemicalDetails(ctx context.Context, arg CreateChemicalDetailsParams) error {
	_, err := q.db.ExecContext(ctx, createChemicalDetails,
		arg.TreatmentID,
		arg.ChemicalType,
		arg.ProductName,
		arg.ActiveIngredient,
		arg.Amount,
		arg.AmountUnit,
		arg.RatePer1000sqft,
		arg.TargetPest,
	)
	return err
}

const createMowingDetails = `-- name: CreateMowingDetails :exec
INSERT INTO mowing_treatments (treatment_id, height_inches, clippings_removed, mower_type, pattern)
VALUES ($1, $2, $3, $4, $5)`

type CreateMowingDetailsParams struct {
	TreatmentID      int64   `json:"treatment_id"`
	HeightInches     float64 `json:"height_inches"`
	ClippingsRemoved bool    `json:"clippings_removed"`
	MowerType        string  `json:"mower_type"`
	Pattern          string  `json:"pattern"`
}

func (q *Queries) CreateMowingDetails(ctx context.Context, arg CreateMowingDetailsParams) error {
	_, err := q.db.ExecContext(ctx, createMowingDetails,
		arg.TreatmentID,
		arg.HeightInches,
		arg.ClippingsRemoved,
		arg.MowerType,
		arg.Pattern,
	)
	return err
}
