package domain

import "time"

// Location is a named research site that plots reference by name.
type Location struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// GrassType is a turfgrass species or cultivar.
type GrassType struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	ScientificName string    `json:"scientific_name"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
}

// LocationParams contains the writable location fields.
type LocationParams struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GrassTypeParams contains the writable grass type fields.
type GrassTypeParams struct {
	Name           string `json:"name"`
	ScientificName string `json:"scientific_name"`
	Description    string `json:"description"`
}
