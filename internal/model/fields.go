package model

import (
	"errors"
	"fmt"

	"github.com/WenkChr/NGD-AGOL-Download/internal/normalize"
)

// Side of a street segment
type Side string

const (
	Left  Side = "L"
	Right Side = "R"
)

// Sides in processing order
var Sides = []Side{Left, Right}

// Column names of the NGD_AL table and the redline layer
const (
	FieldUID          = "NGD_UID"
	FieldEditDate     = "EditDate"
	FieldCreationDate = "CreationDate"
	FieldComments     = "Comments"

	FieldRightDiffers = "STR_RH_DIFF_FLG"
	FieldCSDLeft      = "CSD_UID_L"
	FieldCSDRight     = "CSD_UID_R"
	FieldNameSource   = "NAME_SRC"

	FieldAttributeDate = "ATTRBT_DTE"
)

// Field describes one diffable column of NGD_AL
type Field struct {
	Name string
	Type normalize.FieldType
}

// AttributeFields are the scalar fields whose changes stamp ATTRBT_DTE
var AttributeFields = []Field{
	{"SGMNT_SRC", normalize.TypeText},
	{"STR_CLS_CDE", normalize.TypeInt},
	{"STR_RNK_CDE", normalize.TypeInt},
	{"ADDR_TYP_L", normalize.TypeText},
	{"ADDR_TYP_R", normalize.TypeText},
	{"ADDR_PRTY_L", normalize.TypeText},
	{"ADDR_PRTY_R", normalize.TypeText},
}

// AddressFields are the address range fields, each with its own date column
var AddressFields = []Field{
	{"AFL_VAL", normalize.TypeInt},
	{"AFL_SFX", normalize.TypeText},
	{"AFL_SRC", normalize.TypeText},
	{"ATL_VAL", normalize.TypeInt},
	{"ATL_SFX", normalize.TypeText},
	{"ATL_SRC", normalize.TypeText},
	{"AFR_VAL", normalize.TypeInt},
	{"AFR_SFX", normalize.TypeText},
	{"AFR_SRC", normalize.TypeText},
	{"ATR_VAL", normalize.TypeInt},
	{"ATR_SFX", normalize.TypeText},
	{"ATR_SRC", normalize.TypeText},
}

// DateColumns maps every diffable field to the date column stamped with it.
var DateColumns = map[string]string{
	"SGMNT_SRC":   FieldAttributeDate,
	"STR_CLS_CDE": FieldAttributeDate,
	"STR_RNK_CDE": FieldAttributeDate,
	"ADDR_TYP_L":  FieldAttributeDate,
	"ADDR_TYP_R":  FieldAttributeDate,
	"ADDR_PRTY_L": FieldAttributeDate,
	"ADDR_PRTY_R": FieldAttributeDate,

	"AFL_VAL": "AFL_DTE",
	"AFL_SFX": "AFL_DTE",
	"AFL_SRC": "AFL_DTE",
	"ATL_VAL": "ATL_DTE",
	"ATL_SFX": "ATL_DTE",
	"ATL_SRC": "ATL_DTE",
	"AFR_VAL": "AFR_DTE",
	"AFR_SFX": "AFR_DTE",
	"AFR_SRC": "AFR_DTE",
	"ATR_VAL": "ATR_DTE",
	"ATR_SFX": "ATR_DTE",
	"ATR_SRC": "ATR_DTE",

	"NGD_STR_UID_L":    "NGD_STR_UID_DTE_L",
	"NGD_STR_UID_R":    "NGD_STR_UID_DTE_R",
	"ALIAS1_STR_UID_L": FieldAttributeDate,
	"ALIAS1_STR_UID_R": FieldAttributeDate,
	"ALIAS2_STR_UID_L": FieldAttributeDate,
	"ALIAS2_STR_UID_R": FieldAttributeDate,
}

// ErrMissingDateColumn is wrapped by ValidateDateColumns
var ErrMissingDateColumn = errors.New("missing date column")

// ValidateDateColumns checks that every diffable field and street slot has a
// companion date column.
func ValidateDateColumns() error {
	var missing []string
	check := func(name string) {
		if DateColumns[name] == "" {
			missing = append(missing, name)
		}
	}
	for _, f := range AttributeFields {
		check(f.Name)
	}
	for _, f := range AddressFields {
		check(f.Name)
	}
	for _, s := range StreetSlots {
		check(s.UIDField)
		if s.DateField != DateColumns[s.UIDField] {
			return fmt.Errorf("%w: slot %s uses %s, table has %s", ErrMissingDateColumn, s.Name, s.DateField, DateColumns[s.UIDField])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w for fields %v", ErrMissingDateColumn, missing)
	}
	return nil
}

// StreetSlot is one of the six street name lookups carried by a segment
type StreetSlot struct {
	Name          string
	Side          Side
	Primary       bool
	DivisionField string
	NameField     string
	TypeField     string
	DirField      string
	UIDField      string
	DateField     string
}

// StreetSlots in resolution order
var StreetSlots = []StreetSlot{
	{"left primary", Left, true, FieldCSDLeft, "STR_NME", "STR_TYP", "STR_DIR", "NGD_STR_UID_L", "NGD_STR_UID_DTE_L"},
	{"right primary", Right, true, FieldCSDRight, "STR_NME", "STR_TYP", "STR_DIR", "NGD_STR_UID_R", "NGD_STR_UID_DTE_R"},
	{"left alias 1", Left, false, FieldCSDLeft, "STR_NME_ALIAS1", "STR_TYP_ALIAS1", "STR_DIR_ALIAS1", "ALIAS1_STR_UID_L", FieldAttributeDate},
	{"right alias 1", Right, false, FieldCSDRight, "STR_NME_ALIAS1", "STR_TYP_ALIAS1", "STR_DIR_ALIAS1", "ALIAS1_STR_UID_R", FieldAttributeDate},
	{"left alias 2", Left, false, FieldCSDLeft, "STR_NME_ALIAS2", "STR_TYP_ALIAS2", "STR_DIR_ALIAS2", "ALIAS2_STR_UID_L", FieldAttributeDate},
	{"right alias 2", Right, false, FieldCSDRight, "STR_NME_ALIAS2", "STR_TYP_ALIAS2", "STR_DIR_ALIAS2", "ALIAS2_STR_UID_R", FieldAttributeDate},
}

// NameSourceField is the per-side name source column updated with a primary slot
func NameSourceField(side Side) string {
	return "NAME_SRC_" + string(side)
}

// ECStreetIDField is the editing-channel street id reset when a primary slot changes
func ECStreetIDField(side Side) string {
	return "EC_STR_ID_" + string(side)
}

// RangeFromField and RangeToField are the numeric address range bounds of a side
func RangeFromField(side Side) string { return "AF" + string(side) + "_VAL" }
func RangeToField(side Side) string { return "AT" + string(side) + "_VAL" }

// StreetUIDField is the primary street id of a side
func StreetUIDField(side Side) string { return "NGD_STR_UID_" + string(side) }

// AliasUIDFields are copied from NGD_AL when the redline layer lacks them
var AliasUIDFields = []string{"ALIAS1_STR_UID_L", "ALIAS1_STR_UID_R", "ALIAS2_STR_UID_L", "ALIAS2_STR_UID_R"}

var fieldTypes = func() map[string]normalize.FieldType {
	types := map[string]normalize.FieldType{
		FieldUID:          normalize.TypeInt,
		FieldRightDiffers: normalize.TypeInt,
		FieldCSDLeft:      normalize.TypeInt,
		FieldCSDRight:     normalize.TypeInt,
		FieldNameSource:   normalize.TypeText,
		"EC_STR_ID_L":     normalize.TypeInt,
		"EC_STR_ID_R":     normalize.TypeInt,
		"NAME_SRC_L":      normalize.TypeText,
		"NAME_SRC_R":      normalize.TypeText,
	}
	for _, f := range AttributeFields {
		types[f.Name] = f.Type
	}
	for _, f := range AddressFields {
		types[f.Name] = f.Type
	}
	for _, s := range StreetSlots {
		types[s.UIDField] = normalize.TypeInt
		types[s.NameField] = normalize.TypeText
		types[s.TypeField] = normalize.TypeText
		types[s.DirField] = normalize.TypeText
	}
	return types
}()

// TypeOf returns how a column is normalized; unknown columns are TypeAuto
func TypeOf(name string) normalize.FieldType {
	if t, ok := fieldTypes[name]; ok {
		return t
	}
	return normalize.TypeAuto
}
