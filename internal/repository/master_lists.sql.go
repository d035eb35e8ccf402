package repository

import (
	"context"
)

// =============================================================================
// Locations
// =============================================================================

const listLocations = `-- name: ListLocations :many
SELECT id, name, description, created_at
FROM locations
WHERE $1::text = '' OR name ILIKE '%' || $1::text || '%' OR description ILIKE '%' || $1::text || '%'
ORDER BY name`

func (q *Queries) ListLocations(ctx context.Context, search string) ([]Location, error) {
	rows, err := q.db.QueryContext(ctx, listLocations, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Location
	for rows.Next() {
		var i Location
		if err := rows.Scan(&i.ID, &i.Name, &i.Description, &i.CreatedAt); err != nil {
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

const getLocation = `-- name: GetLocation :one
SELECT id, name, description, created_at FROM locations WHERE id = $1`

func (q *Queries) GetLocation(ctx context.Context, id int64) (Location, error) {
	row := q.db.QueryRowContext(ctx, getLocation, id)
	var i Location
	err := row.Scan(&i.ID, &i.Name, &i.Description, &i.CreatedAt)
	return i, err
}

const createLocation = `-- name: CreateLocation :one
INSERT INTO locations (name, description) VALUES ($1, $2)
RETURNING id, name, description, created_at`

type CreateLocationParams struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (q *Queries) CreateLocation(ctx context.Context, arg CreateLocationParams) (Location, error) {
	row := q.db.QueryRowContext(ctx, createLocation, arg.Name, arg.Description)
	var i Location
	err := row.Scan(&i.ID, &i.Name, &i.Description, &i.CreatedAt)
	return i, err
}

const updateLocation = `-- name: UpdateLocation :one
UPDATE locations SET name = $2, description = $3 WHERE id = $1
RETURNING id, name, description, created_at`

type UpdateLocationParams struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (q *Queries) UpdateLocation(ctx context.Context, arg UpdateLocationParams) (Location, error) {
	row := q.db.QueryRowContext(ctx, updateLocation, arg.ID, arg.Name, arg.Description)
	var i Location
	err := row.Scan(&i.ID, &i.Name, &i.Description, &i.CreatedAt)
	return i, err
}

const deleteLocation = `-- name: DeleteLocation :execrows
DELETE FROM locations WHERE id = $1`

func (q *Queries) DeleteLocation(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteLocation, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// =============================================================================
// Grass Types
// =============================================================================

const listGrassTypes = `-- name: ListGrassTypes :many
SELECT id, name, scientific_name, description, created_at
FROM grass_types
WHERE $1::text = ''
   OR name ILIKE '%' || $1::text || '%'
   OR scientific_name ILIKE '%' || $1::text || '%'
   OR description ILIKE '%' || $1::text || '%'
ORDER BY name`

func (q *Queries) ListGrassTypes(ctx context.Context, search string) ([]GrassType, error) {
	rows, err := q.db.QueryContext(ctx, listGrassTypes, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GrassType
	for rows.Next() {
		var i GrassType
		if err := rows.Scan(&i.ID, &i.Name, &i.ScientificName, &i.Description, &i.CreatedAt); err != nil {
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

const getGrassType = `-- name: GetGrassType :one
SELECT id, name, scientific_name, description, created_at FROM grass_types WHERE id = $1`

func (q *Queries) GetGrassType(ctx context.Context, id int64) (GrassType, error) {
	row := q.db.QueryRowContext(ctx, getGrassType, id)
	var i GrassType
	err := row.Scan(&i.ID, &i.Name, &i.ScientificName, &i.Description, &i.CreatedAt)
	return i, err
}

const createGrassType = `-- name: CreateGrassType :one
INSERT INTO grass_types (name, scientific_name, description) VALUES ($1, $2, $3)
RETURNING id, name, scientific_name, description, created_at`

type CreateGrassTypeParams struct {
	Name           string `json:"name"`
	ScientificName string `json:"scientific_name"`
	Description    string `json:"description"`
}

func (q *Queries) CreateGrassType(ctx context.Context, arg CreateGrassTypeParams) (GrassType, error) {
	row := q.db.QueryRowContext(ctx, createGrassType, arg.Name, arg.ScientificName, arg.Description)
	var i GrassType
	err := row.Scan(&i.ID, &i.Name, &i.ScientificName, &i.Description, &i.CreatedAt)
	return i, err
}

const updateGrassType = `-- name: UpdateGrassType :one
UPDATE grass_types SET name = $2, scientific_name = $3, description = $4 WHERE id = $1
RETURNING id, name, scientific_name, description, created_at`

type UpdateGrassTypeParams struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	ScientificName string `json:"scientific_name"`
	Description    string `json:"description"`
}

func (q *Queries) UpdateGrassType(ctx context.Context, arg UpdateGrassTypeParams) (GrassType, error) {
	row := q.db.QueryRowContext(ctx, updateGrassType, arg.ID, arg.Name, arg.ScientificName, arg.Description)
	var i GrassType
	err := row.Scan(&i.ID, &i.Name, &i.ScientificName, &i.Description, &i.CreatedAt)
	return i, err
}

const deleteGrassType = `-- name: DeleteGrassType :execrows
DELETE FROM grass_types WHERE id = $1`

func (q *Queries) DeleteGrassType(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteGrassType, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
