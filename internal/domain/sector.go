package domain

import "strings"

// Sector is a market category used for exposure reporting.
type Sector string

// SectorOther is the fallback for anything outside the fixed enumeration.
const SectorOther Sector = "Other"

// Sectors is the fixed enumeration, in no particular priority. Tag matching
// is first-in-response-order, not by position in this list.
var Sectors = []Sector{
	"Politics",
	"Sports",
	"Crypto",
	"Finance",
	"Economy",
	"Geopolitics",
	"Tech",
	"Science",
	"Culture",
	"World",
	"Elections",
	"Business",
}

var sectorSet = func() map[Sector]struct{} {
	m := make(map[Sector]struct{}, len(Sectors))
	for _, s := range Sectors {
		m[s] = struct{}{}
	}
	return m
}()

// NormalizeSector trims label and returns it as a Sector when it exactly
// matches the enumeration, SectorOther otherwise.
func NormalizeSector(label string) Sector {
	s := Sector(strings.TrimSpace(label))
	if _, ok := sectorSet[s]; ok {
		return s
	}
	return SectorOther
}

// IsKnownSector reports whether label (after trimming) is in the enumeration.
func IsKnownSector(label string) bool {
	return NormalizeSector(label) != SectorOther
}
