package handlers

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/WenkChr/NGD-AGOL-Download/internal/export"
)

// ExportHandler serves the run's SQL and packaged shapefiles
type ExportHandler struct {
	Config *Config
}

// GetStatements returns the SQL file, optionally only the lines for ?uid=
func (h *ExportHandler) GetStatements(w http.ResponseWriter, r *http.Request) {
	var uid *int64
	if s := r.URL.Query().Get("uid"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			http.Error(w, "Invalid uid", http.StatusBadRequest)
			return
		}
		uid = &n
	}

	lines, err := statementLines(h.Config.Path(h.Config.Files.Statements), h.Config.UIDField, uid)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "Statements not found", http.StatusNotFound)
			return
		}
		log.WithError(err).Error("Failed to read statements")
		http.Error(w, "Failed to read statements", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Statement-Count", strconv.Itoa(len(lines)))
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

// DownloadPackage zips a shapefile layer and sends the archive
func (h *ExportHandler) DownloadPackage(w http.ResponseWriter, r *http.Request) {
	var file string
	switch r.URL.Query().Get("layer") {
	case "", "geometry":
		file = h.Config.Files.Geometry
	case "overlaps":
		file = h.Config.Files.Overlaps
	default:
		http.Error(w, "Unknown layer", http.StatusBadRequest)
		return
	}
	if !strings.EqualFold(filepath.Ext(file), ".shp") {
		http.Error(w, "Layer is not a shapefile", http.StatusBadRequest)
		return
	}

	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)) + ".zip"
	tmp, err := os.MkdirTemp("", "ngd-package-")
	if err != nil {
		http.Error(w, "Failed to package layer", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(tmp)

	zipPath := filepath.Join(tmp, name)
	if _, err := export.Package(h.Config.Path(file), zipPath); err != nil {
		log.WithError(err).Warn("Failed to package layer")
		http.Error(w, "Layer not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, zipPath)
}

// statementLines reads the SQL file; a non-nil uid keeps only its statements
func statementLines(path, uidField string, uid *int64) ([]string, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var match *regexp.Regexp
	if uid != nil {
		match = regexp.MustCompile(`WHERE\s+` + regexp.QuoteMeta(uidField) + `\s*=\s*` + strconv.FormatInt(*uid, 10) + `\b`)
	}

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || (match != nil && !match.MatchString(line)) {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
