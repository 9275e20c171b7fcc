package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/WenkChr/NGD-AGOL-Download/internal/audit"
)

// Config is the part of the server configuration the handlers need
type Config struct {
	OutputDir string
	UIDField  string
	Files     Files
}

// Files names the run outputs inside the output directory
type Files struct {
	Report     string `json:"report"`
	Statements string `json:"statements"`
	Geometry   string `json:"geometry"`
	Overlaps   string `json:"overlaps"`
}

// Path resolves an output file against the output directory
func (c *Config) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.OutputDir, name)
}

// APIHandler serves the run report
type APIHandler struct {
	Config  *Config
	Started time.Time
}

// HealthResponse reports which outputs are present
type HealthResponse struct {
	Status    string          `json:"status"`
	OutputDir string          `json:"output_dir"`
	Uptime    string          `json:"uptime"`
	Outputs   map[string]bool `json:"outputs"`
}

// RecordResponse is everything a run decided about one uid
type RecordResponse struct {
	UID        int64            `json:"ngd_uid"`
	Decisions  []audit.Decision `json:"decisions"`
	DoNotExist bool             `json:"do_not_exist"`
	Statements []string         `json:"statements"`
}

// Health returns the server status
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	files := map[string]string{
		"report":     h.Config.Files.Report,
		"statements": h.Config.Files.Statements,
		"geometry":   h.Config.Files.Geometry,
		"overlaps":   h.Config.Files.Overlaps,
	}
	resp := HealthResponse{
		Status:    "ok",
		OutputDir: h.Config.OutputDir,
		Uptime:    time.Since(h.Started).Round(time.Second).String(),
		Outputs:   make(map[string]bool, len(files)),
	}
	for name, file := range files {
		_, err := os.Stat(h.Config.Path(file))
		resp.Outputs[name] = file != "" && err == nil
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetReport returns the run report
func (h *APIHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadReport(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetRecord returns the decisions and statements for one uid
func (h *APIHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	uid, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid uid", http.StatusBadRequest)
		return
	}
	report, ok := h.loadReport(w)
	if !ok {
		return
	}

	resp := RecordResponse{UID: uid, Decisions: []audit.Decision{}}
	for _, d := range report.Decisions {
		if d.UID != nil && *d.UID == uid {
			resp.Decisions = append(resp.Decisions, d)
		}
	}
	for _, id := range report.DoNotExist {
		if id == uid {
			resp.DoNotExist = true
			break
		}
	}
	resp.Statements, err = statementLines(h.Config.Path(h.Config.Files.Statements), h.Config.UIDField, &uid)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Error("Failed to read statements")
		http.Error(w, "Failed to read statements", http.StatusInternalServerError)
		return
	}
	if resp.Statements == nil {
		resp.Statements = []string{}
	}
	if len(resp.Decisions) == 0 && len(resp.Statements) == 0 && !resp.DoNotExist {
		http.Error(w, "Record not found in run", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) loadReport(w http.ResponseWriter) (*audit.RunReport, bool) {
	report, err := audit.ReadReport(h.Config.Path(h.Config.Files.Report))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "Report not found", http.StatusNotFound)
		} else {
			log.WithError(err).Error("Failed to load report")
			http.Error(w, "Failed to load report", http.StatusInternalServerError)
		}
		return nil, false
	}
	return report, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}
