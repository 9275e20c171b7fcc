package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/WenkChr/NGD-AGOL-Download/internal/audit"
	"github.com/WenkChr/NGD-AGOL-Download/internal/config"
	"github.com/WenkChr/NGD-AGOL-Download/internal/db"
	"github.com/WenkChr/NGD-AGOL-Download/internal/engine"
	"github.com/WenkChr/NGD-AGOL-Download/internal/etl"
	"github.com/WenkChr/NGD-AGOL-Download/internal/export"
	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
	"github.com/WenkChr/NGD-AGOL-Download/internal/normalize"
	"github.com/WenkChr/NGD-AGOL-Download/internal/validation"
)

// runFlags are the command line overrides of the env configuration
type runFlags struct {
	redline, ngdal, streets string
	from, to                string
	sqlPath, geomPath       string
	overlapPath, reportPath string
	useDB, strict           bool
	skipOverlaps            bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.redline, "redline", "", "redline layer (.geojson, .shp or zipped shapefile)")
	cmd.Flags().StringVar(&f.ngdal, "ngdal", "", "NGD_AL layer")
	cmd.Flags().StringVar(&f.streets, "streets", "", "NGD_STREET CSV")
	cmd.Flags().StringVar(&f.from, "from", "", "edit window start")
	cmd.Flags().StringVar(&f.to, "to", "", "edit window end; its date is the SQL cutoff")
	cmd.Flags().StringVar(&f.overlapPath, "out-overlaps", "", "overlap layer output")
	cmd.Flags().StringVar(&f.reportPath, "report", "", "JSON run report output")
	cmd.Flags().BoolVar(&f.useDB, "use-db", false, "read NGD_AL and NGD_STREET from PostgreSQL")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "fail on unparseable attribute values")
}

// load reads the env configuration and applies the flags that were set
func (f *runFlags) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	changed := cmd.Flags().Changed
	paths := map[string]*string{
		"redline":      &cfg.RedlinePath,
		"ngdal":        &cfg.AuthoritativePath,
		"streets":      &cfg.StreetPath,
		"out-sql":      &cfg.SQLPath,
		"out-geom":     &cfg.GeometryPath,
		"out-overlaps": &cfg.OverlapPath,
		"report":       &cfg.ReportPath,
	}
	values := map[string]string{
		"redline": f.redline, "ngdal": f.ngdal, "streets": f.streets,
		"out-sql": f.sqlPath, "out-geom": f.geomPath,
		"out-overlaps": f.overlapPath, "report": f.reportPath,
	}
	for name, dst := range paths {
		if changed(name) {
			*dst = values[name]
		}
	}
	if changed("use-db") {
		cfg.UseDB = f.useDB
	}
	if changed("strict") {
		cfg.StrictValues = f.strict
	}
	if changed("from") {
		if cfg.From, err = config.ParseWindowTime(f.from); err != nil {
			return nil, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if changed("to") {
		if cfg.To, err = config.ParseWindowTime(f.to); err != nil {
			return nil, fmt.Errorf("invalid --to: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.UseDB && cfg.AuthoritativePath == "" {
		return nil, fmt.Errorf("no NGD_AL source: set NGD_NGDAL_DATA, --ngdal or --use-db")
	}
	return cfg, nil
}

// sources are the reference tables of a run
type sources struct {
	conn          *db.Connection
	authoritative *model.Table
	streets       []model.StreetRow
	ranges        validation.RangeSource
}

func (s *sources) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

// loadRedline reads the redline layer and applies the edit window
func loadRedline(cfg *config.Config, builder *etl.RecordBuilder, tracker *audit.Tracker) (*model.Table, []*model.Record, error) {
	log.WithField("path", cfg.RedlinePath).Info("Loading redline edits")
	redline, err := etl.LoadTable(localDebug, cfg.RedlinePath, builder)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load redline: %w", err)
	}
	tracker.Source("redline", cfg.RedlinePath)

	records := etl.FilterWindow(redline.Records, cfg.From, cfg.To)
	log.WithFields(log.Fields{"loaded": len(redline.Records), "in_window": len(records)}).Info("Filtered redline to edit window")
	return redline, records, nil
}

// emptyBatch reports a window without edits; the run then leaves every
// output from an earlier run in place
func emptyBatch(records []*model.Record) bool {
	if len(records) > 0 {
		return false
	}
	log.Info("No redline edits in the window, nothing to write")
	return true
}

// loadSources reads NGD_AL and NGD_STREET from files or the database.
// NGD_AL is restricted to the uids in the redline batch; the range source
// keeps the whole table so overlaps with untouched rows are found.
func loadSources(cfg *config.Config, builder *etl.RecordBuilder, records []*model.Record, needStreets bool, tracker *audit.Tracker) (*sources, error) {
	src := &sources{}
	if cfg.UseDB {
		conn, err := db.NewConnection(cfg.DB)
		if err != nil {
			return nil, err
		}
		src.conn = conn
		store := etl.NewStore(conn.DB, cfg.Table, cfg.StreetTable, cfg.UIDField, cfg.GeomField)
		if src.authoritative, err = store.LoadAuthoritative(localDebug, etl.UIDs(records), builder); err != nil {
			src.Close()
			return nil, err
		}
		if needStreets {
			if src.streets, err = store.LoadStreets(localDebug, builder.Normalizer()); err != nil {
				src.Close()
				return nil, err
			}
		}
		src.ranges = store
		tracker.Source("ngdal", "postgres:"+cfg.Table)
		tracker.Source("streets", "postgres:"+cfg.StreetTable)
		return src, nil
	}

	log.WithField("path", cfg.AuthoritativePath).Info("Loading NGD_AL")
	full, err := etl.LoadTable(localDebug, cfg.AuthoritativePath, builder)
	if err != nil {
		return nil, fmt.Errorf("failed to load NGD_AL: %w", err)
	}
	tracker.Source("ngdal", cfg.AuthoritativePath)
	src.authoritative = etl.Affected(full, records)
	src.ranges = validation.NewTableRanges(full)
	log.WithFields(log.Fields{"rows": len(full.Records), "affected": len(src.authoritative.Records)}).Info("Restricted NGD_AL to redline uids")

	if needStreets {
		if cfg.StreetPath == "" {
			return nil, fmt.Errorf("no NGD_STREET source: set NGD_NGDSTREET_DATA, --streets or --use-db")
		}
		if src.streets, err = etl.LoadStreetCSV(localDebug, cfg.StreetPath, builder.Normalizer()); err != nil {
			return nil, fmt.Errorf("failed to load NGD_STREET: %w", err)
		}
		tracker.Source("streets", cfg.StreetPath)
	}
	return src, nil
}

func createDetectCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Classify redline edits and write SQL updates and review layers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			return runDetect(cfg, f.skipOverlaps)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.sqlPath, "out-sql", "", "SQL output")
	cmd.Flags().StringVar(&f.geomPath, "out-geom", "", "geometry-bound layer output (.shp or .geojson)")
	cmd.Flags().BoolVar(&f.skipOverlaps, "skip-overlaps", false, "do not run the address range check")
	return cmd
}

func runDetect(cfg *config.Config, skipOverlaps bool) error {
	normalizer := &normalize.Normalizer{Strict: cfg.StrictValues}
	builder := etl.NewRecordBuilder(cfg.Schema(), normalizer)
	cutoff := cfg.Cutoff().Format("2006-01-02")
	tracker := audit.NewTracker(cfg.From, cfg.To, cutoff)
	log.WithFields(log.Fields{"run": tracker.RunID(), "cutoff": cutoff}).Info("Starting change detection")

	redline, records, err := loadRedline(cfg, builder, tracker)
	if err != nil {
		return err
	}
	if emptyBatch(records) {
		return nil
	}
	src, err := loadSources(cfg, builder, records, true, tracker)
	if err != nil {
		return err
	}
	defer src.Close()

	opts := cfg.EngineOptions()
	opts.Debug = localDebug
	bar := newProgress(len(records), "classifying")
	opts.Progress = bar.tick
	eng, err := engine.NewEngine(opts, src.authoritative, src.streets)
	if err != nil {
		return err
	}
	res := eng.Run(records)
	bar.finish()

	if err := export.WriteStatements(cfg.SQLPath, res.Statements); err != nil {
		return err
	}
	tracker.Output("statements", cfg.SQLPath)
	log.WithFields(log.Fields{"path": cfg.SQLPath, "statements": len(res.Statements)}).Info("Wrote SQL updates")

	if err := export.WriteLayer(cfg.GeometryPath, export.RecordLayer(redline.Columns, res.GeometryBound)); err != nil {
		return err
	}
	tracker.Output("geometry", cfg.GeometryPath)
	log.WithFields(log.Fields{"path": cfg.GeometryPath, "records": len(res.GeometryBound)}).Info("Wrote geometry-bound records")

	tracker.RecordResult(localDebug, res, normalizer.Coerced)
	if normalizer.Coerced > 0 {
		log.WithField("values", normalizer.Coerced).Warn("Unparseable values were read as null")
	}

	if !skipOverlaps {
		if err := checkOverlaps(cfg, src.ranges, res.Resolved(), tracker); err != nil {
			return err
		}
	}
	return writeReport(cfg, tracker)
}

func createOverlapsCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "overlaps",
		Short: "Flag redline address ranges that overlap NGD_AL ranges on the same street",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			return runOverlaps(cfg)
		},
	}
	f.register(cmd)
	return cmd
}

func runOverlaps(cfg *config.Config) error {
	normalizer := &normalize.Normalizer{Strict: cfg.StrictValues}
	builder := etl.NewRecordBuilder(cfg.Schema(), normalizer)
	tracker := audit.NewTracker(cfg.From, cfg.To, cfg.Cutoff().Format("2006-01-02"))

	_, records, err := loadRedline(cfg, builder, tracker)
	if err != nil {
		return err
	}
	if emptyBatch(records) {
		return nil
	}
	src, err := loadSources(cfg, builder, records, false, tracker)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := checkOverlaps(cfg, src.ranges, engine.Deduplicate(records), tracker); err != nil {
		return err
	}
	return writeReport(cfg, tracker)
}

func checkOverlaps(cfg *config.Config, ranges validation.RangeSource, records []*model.Record, tracker *audit.Tracker) error {
	log.Info("Checking address ranges against NGD_AL")
	validator := validation.NewRangeValidator(ranges, localDebug)
	bar := newProgress(len(records), "checking ranges")
	validator.Progress = bar.tick
	report, err := validator.Check(records)
	bar.finish()
	if err != nil {
		return err
	}

	if err := export.WriteLayer(cfg.OverlapPath, export.OverlapLayer(report.Overlaps)); err != nil {
		return err
	}
	tracker.Output("overlaps", cfg.OverlapPath)
	tracker.RecordTopology(report)
	for _, inc := range report.Incomplete {
		log.WithFields(log.Fields{"uid": inc.UID, "side": inc.Side, "from": inc.From, "to": inc.To}).Warn("Address range has one bound")
	}
	return nil
}

func writeReport(cfg *config.Config, tracker *audit.Tracker) error {
	if cfg.ReportPath == "" {
		return nil
	}
	tracker.Output("report", cfg.ReportPath)
	if err := tracker.WriteReport(cfg.ReportPath); err != nil {
		return err
	}
	log.WithFields(log.Fields{"run": tracker.RunID(), "path": cfg.ReportPath}).Info("Wrote run report")
	return nil
}

// progress wraps an optional progress bar
type progress struct {
	bar *progressbar.ProgressBar
}

func newProgress(total int, description string) *progress {
	if !showProgress || total == 0 {
		return &progress{}
	}
	return &progress{bar: progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionFullWidth(),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
	)}
}

func (p *progress) tick() {
	if p.bar != nil {
		p.bar.Add(1)
	}
}

func (p *progress) finish() {
	if p.bar != nil {
		p.bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}

func trimExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}
