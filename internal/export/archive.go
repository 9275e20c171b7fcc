package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver/v3"
)

// ShapefileParts are the sidecar extensions packaged with a .shp
var ShapefileParts = []string{".shp", ".shx", ".dbf", ".prj", ".cpg"}

// Package zips a shapefile and its existing sidecars for upload.
// The archive defaults to the shapefile path with a .zip extension.
func Package(shpPath, zipPath string) (string, error) {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	if zipPath == "" {
		zipPath = base + ".zip"
	}

	var files []string
	for _, ext := range ShapefileParts {
		p := base + ext
		if _, err := os.Stat(p); err == nil {
			files = append(files, p)
		}
	}
	if len(files) == 0 || files[0] != base+".shp" {
		return "", fmt.Errorf("no shapefile at %s", shpPath)
	}

	z := archiver.NewZip()
	z.OverwriteExisting = true
	if err := z.Archive(files, zipPath); err != nil {
		return "", fmt.Errorf("failed to zip %s: %w", shpPath, err)
	}
	return zipPath, nil
}
