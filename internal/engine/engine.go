package engine

import (
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	log "github.com/sirupsen/logrus"

	"github.com/WenkChr/NGD-AGOL-Download/internal/debug"
	"github.com/WenkChr/NGD-AGOL-Download/internal/match"
	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
	"github.com/WenkChr/NGD-AGOL-Download/internal/normalize"
)

// Options configure a change detection run
type Options struct {
	Table              string
	UIDField           string
	Cutoff             time.Time
	DateFormat         string
	GeomRoundingFactor float64
	DefaultNameSource  string
	ResetECStreetIDs   bool
	SkipFields         []string
	Debug              bool
	// Progress is called once per classified record when set
	Progress func()
}

// DefaultOptions returns the settings used against the production NGD_AL
func DefaultOptions() Options {
	return Options{
		Table:              "NGD.NGD_AL",
		UIDField:           model.FieldUID,
		DateFormat:         "YYYY-MM-DD",
		GeomRoundingFactor: 0.1,
		DefaultNameSource:  "NGD",
		ResetECStreetIDs:   true,
	}
}

// Counts are the change counters of a run
type Counts struct {
	Input       int            `json:"input"`
	Deduped     int            `json:"deduplicated"`
	ByChange    map[Change]int `json:"by_change"`
	Same        int            `json:"same"`
	Update      int            `json:"update"`
	Birth       int            `json:"birth"`
	Statements  int            `json:"statements"`
	GeometryOut int            `json:"geometry_bound"`
}

// Result is everything a run produces
type Result struct {
	Outcomes      []Outcome
	Statements    []Statement
	GeometryBound []*model.Record
	DoNotExist    []int64
	Births        []match.Birth
	Counts        Counts
}

// Engine reconciles redline edits against NGD_AL and NGD_STREET
type Engine struct {
	opts       Options
	classifier *Classifier
}

// NewEngine builds an engine over the reference tables of a run
func NewEngine(opts Options, authoritative *model.Table, streets []model.StreetRow) (*Engine, error) {
	if opts.Table == "" || opts.UIDField == "" {
		return nil, fmt.Errorf("table and uid field are required")
	}
	if opts.GeomRoundingFactor <= 0 {
		return nil, fmt.Errorf("geometry rounding factor must be positive, got %v", opts.GeomRoundingFactor)
	}
	if err := model.ValidateDateColumns(); err != nil {
		return nil, err
	}

	skip := mapset.NewSet[string](opts.SkipFields...)
	differ := &Differ{
		Table:             opts.Table,
		UIDField:          opts.UIDField,
		Cutoff:            opts.Cutoff,
		DateFormat:        opts.DateFormat,
		DefaultNameSource: opts.DefaultNameSource,
		ResetECStreetIDs:  opts.ResetECStreetIDs,
		Skip:              skip,
	}

	var reference map[int64]*model.Record
	if authoritative != nil {
		reference = authoritative.ByUID()
	}
	resolver := match.NewResolver(match.NewStreetIndex(streets), opts.Debug)

	return &Engine{
		opts:       opts,
		classifier: NewClassifier(reference, resolver, differ, opts.GeomRoundingFactor, opts.Debug),
	}, nil
}

// Run deduplicates the batch, classifies every record once and then
// groups the outcomes. Nothing is removed from a collection while it is
// being walked; the grouping is a separate pass over the outcomes.
func (e *Engine) Run(records []*model.Record) *Result {
	debug.DebugHeader(e.opts.Debug)
	defer debug.DebugFooter(e.opts.Debug)
	defer debug.DebugTiming(e.opts.Debug, "change detection")()

	res := &Result{Counts: Counts{Input: len(records), ByChange: make(map[Change]int)}}
	if len(records) == 0 {
		log.Info("No redline records in the window, nothing to do")
		return res
	}

	deduped := Deduplicate(records)
	res.Counts.Deduped = len(deduped)
	log.WithFields(log.Fields{"input": len(records), "kept": len(deduped)}).Info("Deduplicated redline records")

	res.Outcomes = make([]Outcome, 0, len(deduped))
	for _, rec := range deduped {
		res.Outcomes = append(res.Outcomes, e.classifier.Classify(rec))
		if e.opts.Progress != nil {
			e.opts.Progress()
		}
	}

	e.partition(res)
	return res
}

func (e *Engine) partition(res *Result) {
	missing := mapset.NewSet[int64]()
	for _, out := range res.Outcomes {
		res.Counts.ByChange[out.Change]++
		for _, s := range out.Slots {
			switch s.Status {
			case match.SlotSame:
				res.Counts.Same++
			case match.SlotUpdated:
				res.Counts.Update++
			case match.SlotUnresolved:
				res.Counts.Birth++
			}
		}

		if out.Change.GeometryBound() {
			res.GeometryBound = append(res.GeometryBound, out.Record)
			if out.Change == GeometryNewStreetName {
				res.Births = append(res.Births, match.Births(out.Record, out.Slots)...)
			}
		}
		res.Statements = append(res.Statements, out.Statements...)
		if out.MissingReference && !missing.Contains(*out.Record.UID) {
			missing.Add(*out.Record.UID)
			res.DoNotExist = append(res.DoNotExist, *out.Record.UID)
		}
	}

	res.Counts.Statements = len(res.Statements)
	res.Counts.GeometryOut = len(res.GeometryBound)

	for _, c := range Changes {
		log.WithField("records", res.Counts.ByChange[c]).Infof("Classified %s", c)
	}
	if len(res.DoNotExist) > 0 {
		log.WithField("uids", res.DoNotExist).Warn("Redline records have no NGD_AL row")
	}
	log.WithFields(log.Fields{
		"geometry":   res.Counts.GeometryOut,
		"statements": res.Counts.Statements,
		"same":       res.Counts.Same,
		"update":     res.Counts.Update,
		"birth":      res.Counts.Birth,
	}).Info("Change detection complete")
}

// Resolved returns the classified records that carry an NGD_UID, with
// primary street uids replaced by the uid the resolver found
func (r *Result) Resolved() []*model.Record {
	out := make([]*model.Record, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if !o.Record.HasUID() {
			continue
		}
		rec := o.Record
		for _, s := range o.Slots {
			if !s.Slot.Primary || s.Status != match.SlotUpdated {
				continue
			}
			if rec == o.Record {
				rec = rec.Clone()
			}
			rec.SetAttr(s.Slot.UIDField, normalize.Int(s.Resolved))
		}
		out = append(out, rec)
	}
	return out
}
