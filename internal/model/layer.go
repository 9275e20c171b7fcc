package model

import (
	"strconv"
	"strings"
)

// DBFNameLength is the longest column name a shapefile attribute table holds
const DBFNameLength = 10

// LayerColumns is the column order of the hosted redline layer. Shortened
// shapefile names depend on it because clashing names are numbered in order.
var LayerColumns = []string{
	"OBJECTID", "GlobalID", "Shape__Length", FieldCreationDate, "Creator", FieldEditDate, "Editor", FieldUID,
	"SGMNT_TYP_CDE", "SGMNT_SRC", "STR_CLS_CDE", "STR_RNK_CDE", "BB_UID_L", "BB_UID_R", "BF_UID_L", "BF_UID_R",
	"AFL_VAL", "AFL_SFX", "AFL_SRC", "ATL_VAL", "ATL_SFX", "ATL_SRC", "AFR_VAL", "AFR_SFX", "AFR_SRC",
	"ATR_VAL", "ATR_SFX", "ATR_SRC", "ADDR_TYP_L", "ADDR_TYP_R", "ADDR_PRTY_L", "ADDR_PRTY_R",
	"NGD_STR_UID_L", "NGD_STR_UID_R", FieldCSDLeft, FieldCSDRight, "PLACE_ID_L", "PLACE_ID_R",
	"PLACE_ID_L_PREV", "PLACE_ID_R_PREC", "NAME_SRC_L", "NAME_SRC_R", "FED_NUM_L", "FED_NUM_R",
	"STR_NME", "STR_TYP", "STR_DIR", FieldNameSource,
	"STR_NME_ALIAS1", "STR_TYP_ALIAS1", "STR_DIR_ALIAS1", "NAME_SRC_ALIAS1",
	"STR_NME_ALIAS2", "STR_TYP_ALIAS2", "STR_DIR_ALIAS2", "NME_SRC_ALIAS2",
	FieldRightDiffers, FieldComments,
	"ALIAS1_STR_UID_L", "ALIAS1_STR_UID_R", "ALIAS2_STR_UID_L", "ALIAS2_STR_UID_R",
	"NGD_STR_UID_DTE_L", "NGD_STR_UID_DTE_R", "EC_STR_ID_L", "EC_STR_ID_R",
}

// ShortNames cuts column names to the DBF limit. A clash keeps the earlier
// column's name and numbers the later one, e.g. STR_NME_ALIAS2 -> STR_NME__1.
func ShortNames(columns []string) []string {
	used := make(map[string]bool, len(columns))
	out := make([]string, len(columns))
	for i, c := range columns {
		name := c
		if len(name) > DBFNameLength {
			name = name[:DBFNameLength]
		}
		for n := 1; used[strings.ToUpper(name)]; n++ {
			suffix := "_" + strconv.Itoa(n)
			base := c
			if len(base) > DBFNameLength-len(suffix) {
				base = base[:DBFNameLength-len(suffix)]
			}
			name = base + suffix
		}
		used[strings.ToUpper(name)] = true
		out[i] = name
	}
	return out
}

var fullNames = func() map[string]string {
	full := make(map[string]string)
	for i, short := range ShortNames(LayerColumns) {
		if short != LayerColumns[i] {
			full[short] = LayerColumns[i]
		}
	}
	return full
}()

// FullName maps a shortened shapefile column back to its layer name.
// Other names are returned unchanged.
func FullName(column string) string {
	if full, ok := fullNames[column]; ok {
		return full
	}
	return column
}
