package handlers

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/WenkChr/NGD-AGOL-Download/internal/etl"
	"github.com/WenkChr/NGD-AGOL-Download/internal/export"
)

// MapsHandler serves the run's feature layers as GeoJSON
type MapsHandler struct {
	Config *Config
}

// GetGeometry returns the geometry-bound records
func (h *MapsHandler) GetGeometry(w http.ResponseWriter, r *http.Request) {
	h.serveLayer(w, r, h.Config.Files.Geometry)
}

// GetOverlaps returns the address range overlap flags
func (h *MapsHandler) GetOverlaps(w http.ResponseWriter, r *http.Request) {
	h.serveLayer(w, r, h.Config.Files.Overlaps)
}

func (h *MapsHandler) serveLayer(w http.ResponseWriter, r *http.Request, file string) {
	if file == "" {
		http.Error(w, "Layer not configured", http.StatusNotFound)
		return
	}
	path := h.Config.Path(file)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		http.Error(w, "Layer not found", http.StatusNotFound)
		return
	}
	table, err := etl.LoadTable(false, path, etl.NewRecordBuilder(etl.DefaultSchema(), nil))
	if err != nil {
		log.WithError(err).WithField("path", path).Error("Failed to load layer")
		http.Error(w, "Failed to load layer", http.StatusInternalServerError)
		return
	}

	records := table.Records
	if limit := parseIntParam(r.URL.Query().Get("limit"), 0); limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	fc := export.FeatureCollection(export.RecordLayer(table.Columns, records))

	data, err := fc.MarshalJSON()
	if err != nil {
		http.Error(w, "Failed to encode layer", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}

// parseIntParam parses a string parameter as int with default value
func parseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return defaultVal
}
