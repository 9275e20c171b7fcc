package match

import (
	"fmt"

	"github.com/WenkChr/NGD-AGOL-Download/internal/debug"
	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
	"github.com/WenkChr/NGD-AGOL-Download/internal/normalize"
)

// StreetKey is the natural key of an NGD_STREET row
type StreetKey struct {
	Division  normalize.Value `json:"csd_uid"`
	Name      normalize.Value `json:"str_nme"`
	Type      normalize.Value `json:"str_typ"`
	Direction normalize.Value `json:"str_dir"`
}

// Empty reports whether name, type and direction are all null
func (k StreetKey) Empty() bool {
	return k.Name.IsNull() && k.Type.IsNull() && k.Direction.IsNull()
}

func (k StreetKey) String() string {
	return fmt.Sprintf("(%s, %q, %q, %q)", k.Division, k.Name, k.Type, k.Direction)
}

// lookup encodes the key so that null components only match null components
func (k StreetKey) lookup() string {
	part := func(v normalize.Value) string {
		return fmt.Sprintf("%d:%s", v.Kind(), v.String())
	}
	return part(k.Division) + "|" + part(k.Name) + "|" + part(k.Type) + "|" + part(k.Direction)
}

// KeyFor builds the key of a street slot from a record
func KeyFor(rec *model.Record, slot model.StreetSlot) StreetKey {
	return StreetKey{
		Division:  rec.Attr(slot.DivisionField),
		Name:      rec.Attr(slot.NameField),
		Type:      rec.Attr(slot.TypeField),
		Direction: rec.Attr(slot.DirField),
	}
}

// StreetIndex answers natural-key lookups against NGD_STREET
type StreetIndex struct {
	byKey map[string]int64
	rows  int
}

// NewStreetIndex indexes the street table; the first row for a key wins
func NewStreetIndex(rows []model.StreetRow) *StreetIndex {
	idx := &StreetIndex{byKey: make(map[string]int64, len(rows)), rows: len(rows)}
	for _, r := range rows {
		k := StreetKey{Division: r.Division, Name: r.Name, Type: r.Type, Direction: r.Direction}.lookup()
		if _, ok := idx.byKey[k]; !ok {
			idx.byKey[k] = r.StreetUID
		}
	}
	return idx
}

// Lookup returns the street uid for a key
func (s *StreetIndex) Lookup(key StreetKey) (int64, bool) {
	uid, ok := s.byKey[key.lookup()]
	return uid, ok
}

// Len is the number of street rows indexed
func (s *StreetIndex) Len() int {
	return s.rows
}

// SlotStatus is the outcome of resolving one street slot
type SlotStatus int

const (
	SlotSkipped SlotStatus = iota
	SlotSame
	SlotUpdated
	SlotUnresolved
)

func (s SlotStatus) String() string {
	switch s {
	case SlotSame:
		return "same"
	case SlotUpdated:
		return "update"
	case SlotUnresolved:
		return "birth"
	default:
		return "skipped"
	}
}

// SlotResult describes how a single slot of a record resolved
type SlotResult struct {
	Slot     model.StreetSlot
	Status   SlotStatus
	Key      StreetKey
	Current  normalize.Value
	Resolved int64
}

// Birth is a street name with no match in NGD_STREET
type Birth struct {
	UID  *int64    `json:"ngd_uid"`
	Slot string    `json:"slot"`
	Key  StreetKey `json:"key"`
}

// Resolver matches the six street slots of a record against NGD_STREET
type Resolver struct {
	index *StreetIndex
	debug bool
}

// NewResolver creates a resolver over an index
func NewResolver(index *StreetIndex, localDebug bool) *Resolver {
	return &Resolver{index: index, debug: localDebug}
}

// Resolve evaluates every slot in order and returns one result per slot
func (r *Resolver) Resolve(rec *model.Record) []SlotResult {
	results := make([]SlotResult, 0, len(model.StreetSlots))
	for _, slot := range model.StreetSlots {
		res := SlotResult{Slot: slot, Key: KeyFor(rec, slot), Current: rec.Attr(slot.UIDField)}
		switch {
		case res.Key.Empty():
			res.Status = SlotSkipped
		default:
			uid, ok := r.index.Lookup(res.Key)
			if !ok {
				res.Status = SlotUnresolved
				debug.DebugOutput(r.debug, "no street for %s key %s", slot.Name, res.Key)
				break
			}
			res.Resolved = uid
			if cur, ok := res.Current.AsInt(); ok && cur == uid {
				res.Status = SlotSame
			} else {
				res.Status = SlotUpdated
			}
		}
		results = append(results, res)
	}
	return results
}

// Unresolved reports whether any slot produced a birth
func Unresolved(results []SlotResult) bool {
	for _, r := range results {
		if r.Status == SlotUnresolved {
			return true
		}
	}
	return false
}

// Births lists the unresolved slots of a record
func Births(rec *model.Record, results []SlotResult) []Birth {
	var births []Birth
	for _, r := range results {
		if r.Status == SlotUnresolved {
			births = append(births, Birth{UID: rec.UID, Slot: r.Slot.Name, Key: r.Key})
		}
	}
	return births
}
