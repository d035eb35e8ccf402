package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/turfplot/internal/domain"
)

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"North Field"}`))
	require.NoError(t, decodeJSON(httptest.NewRecorder(), req, &dst))
	assert.Equal(t, "North Field", dst.Name)

	req = httptest.NewRequest("POST", "/", strings.NewReader(""))
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(decodeJSON(httptest.NewRecorder(), req, &dst)))

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"name":`))
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(decodeJSON(httptest.NewRecorder(), req, &dst)))

	big := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req = httptest.NewRequest("POST", "/", strings.NewReader(big))
	assert.Equal(t, domain.ETOOLARGE, domain.ErrorCode(decodeJSON(httptest.NewRecorder(), req, &dst)))
}

func TestPathID(t *testing.T) {
	req := httptest.NewRequest("GET", "/plots/7", nil)
	req.SetPathValue("id", "7")
	id, err := pathID(req)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	for _, bad := range []string{"", "abc", "0", "-3"} {
		req.SetPathValue("id", bad)
		_, err := pathID(req)
		assert.Error(t, err, bad)
	}
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest("GET", "/?parent_only=true&parent_plot=4&bad=x", nil)

	assert.True(t, queryBool(req, "parent_only"))
	assert.False(t, queryBool(req, "missing"))

	id, err := queryID(req, "parent_plot")
	require.NoError(t, err)
	assert.Equal(t, int64(4), *id)

	id, err = queryID(req, "missing")
	require.NoError(t, err)
	assert.Nil(t, id)

	_, err = queryID(req, "bad")
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestParseIDList(t *testing.T) {
	ids, err := parseIDList("1, 2,,3", "plots")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	ids, err = parseIDList("  ", "plots")
	require.NoError(t, err)
	assert.Nil(t, ids)

	_, err = parseIDList("1,x", "plots")
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, map[string]int{"id": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":1}`, rec.Body.String())
}
