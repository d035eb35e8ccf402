package storage

import (
	"mime"
	"path/filepath"
	"strings"
)

// contentTypes covers the export formats so detection does not depend on the
// host's mime tables.
var contentTypes = map[string]string{
	".csv":  "text/csv; charset=utf-8",
	".pdf":  "application/pdf",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".html": "text/html; charset=utf-8",
}

// DetectContentType returns provided when set, otherwise a type derived from
// the key's extension, falling back to application/octet-stream.
func DetectContentType(provided, key string) string {
	if provided != "" {
		return provided
	}
	ext := strings.ToLower(filepath.Ext(key))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
