package storage

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir(), BaseURL: "http://localhost:8080/files/"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func TestReportKey(t *testing.T) {
	id := uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")
	at := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)

	owner := uuid.MustParse("9b2f3c1e-0d4a-4f8e-9a61-3c5d7e8f9012")

	key := ReportKey(owner, id, "treatment-report-2024-06-02.csv", at)
	assert.Equal(t, "reports/9b2f3c1e-0d4a-4f8e-9a61-3c5d7e8f9012/2024/06/123e4567-e89b-12d3-a456-426614174000/treatment-report-2024-06-02.csv", key)
	assert.True(t, IsReportKey(key))

	assert.Equal(t, "reports/9b2f3c1e-0d4a-4f8e-9a61-3c5d7e8f9012/2024/06/123e4567-e89b-12d3-a456-426614174000/x.csv", ReportKey(owner, id, "../../x.csv", at))
}

func TestReportOwner(t *testing.T) {
	owner := uuid.New()
	got, ok := ReportOwner(ReportKey(owner, uuid.New(), "r.csv", time.Now()))
	assert.True(t, ok)
	assert.Equal(t, owner, got)

	for _, key := range []string{"reports/2024/06/a.csv", "reports/not-a-uuid/x.csv", "reports", "other/" + owner.String() + "/x.csv", "reports/../" + owner.String()} {
		_, ok := ReportOwner(key)
		assert.False(t, ok, key)
	}
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"", "/etc/passwd", "reports/../secret", "./x", `reports\x`} {
		assert.ErrorIs(t, ValidateKey(key), ErrInvalidKey, key)
	}
	assert.NoError(t, ValidateKey("reports/2024/06/a.csv"))
	assert.False(t, IsReportKey("other/a.csv"))
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "text/csv; charset=utf-8", DetectContentType("", "a/report.CSV"))
	assert.Equal(t, "application/pdf", DetectContentType("", "report.pdf"))
	assert.Equal(t, "text/plain", DetectContentType("text/plain", "report.pdf"))
	assert.Equal(t, "application/octet-stream", DetectContentType("", "report.unknownext"))
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)
	key := "reports/2024/06/job/report.csv"

	require.NoError(t, s.Put(ctx, key, strings.NewReader("Date,Time"), PutOptions{}))

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, info, err := s.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "Date,Time", string(body))
	assert.Equal(t, int64(9), info.Size)
	assert.Equal(t, "text/csv; charset=utf-8", info.ContentType)

	url, err := s.URL(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/"+key, url)

	err = s.Put(ctx, key, strings.NewReader("again"), PutOptions{})
	assert.ErrorIs(t, err, ErrKeyExists)
	require.NoError(t, s.Put(ctx, key, strings.NewReader("again"), PutOptions{Overwrite: true}))

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))
	ok, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorage_Errors(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	_, _, err := s.Get(ctx, "reports/missing.csv")
	assert.True(t, IsNotFound(err))

	err = s.Put(ctx, "../escape.csv", strings.NewReader("x"), PutOptions{})
	assert.True(t, IsInvalidKey(err))

	err = s.Put(ctx, "reports/big.csv", strings.NewReader("0123456789"), PutOptions{MaxSize: 4})
	assert.ErrorIs(t, err, ErrTooLarge)
	ok, _ := s.Exists(ctx, "reports/big.csv")
	assert.False(t, ok)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "ftp"}, slog.Default())
	assert.Error(t, err)
}
