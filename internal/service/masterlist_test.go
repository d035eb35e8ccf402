package service

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/turfplot/internal/domain"
)

func TestValidateLocation(t *testing.T) {
	p := domain.LocationParams{Name: "  Stillwater Station ", Description: " main site "}
	require.NoError(t, validateLocation("test", &p))
	assert.Equal(t, "Stillwater Station", p.Name)
	assert.Equal(t, "main site", p.Description)

	err := validateLocation("test", &domain.LocationParams{Name: "   "})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	err = validateLocation("test", &domain.LocationParams{Name: strings.Repeat("x", 201)})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestValidateGrassType(t *testing.T) {
	p := domain.GrassTypeParams{Name: "Bermudagrass", ScientificName: " Cynodon dactylon "}
	require.NoError(t, validateGrassType("test", &p))
	assert.Equal(t, "Cynodon dactylon", p.ScientificName)

	err := validateGrassType("test", &domain.GrassTypeParams{ScientificName: strings.Repeat("x", 201)})
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "name")
	assert.Contains(t, ve.Fields, "scientific_name")
}

func TestNotFoundOrInternal(t *testing.T) {
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(notFoundOrInternal(sql.ErrNoRows, "op", "location", 4)))
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(notFoundOrInternal(errors.New("boom"), "op", "location", 4)))
}
