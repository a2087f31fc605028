package utils

import (
	"path/filepath"
	"strings"
)

var supportedImportExtensions = map[string]bool{
	".csv": true,
}

// IsCSVFile checks if the filename has an extension the importer accepts
func IsCSVFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedImportExtensions[ext]
}
