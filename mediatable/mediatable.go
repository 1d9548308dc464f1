// Package mediatable looks up the human-readable meaning of a FAT BPB
// Media descriptor byte, for display in diagnostic tooling.
//
// Grounded on disks/disks.go, which loads a CSV-tagged struct slice with
// github.com/gocarina/gocsv to back a table of known disk geometries for
// formatting. This package repurposes the same CSV-backed lookup idea for
// a much smaller, read-only table: BPB Media byte -> description. The
// teacher's version of this pattern embeds its CSV with a go:embed
// directive missing its leading "//" (so it never actually embeds
// anything) and populates a nil map in init, which panics on the first
// write; this port fixes both so the lookup actually works.
package mediatable

import (
	_ "embed"
	"strings"

	"github.com/gocarina/gocsv"
)

// Descriptor is one row of the media-descriptor table.
type Descriptor struct {
	Byte        string `csv:"byte"`
	Description string `csv:"description"`
}

//go:embed media_descriptors.csv
var rawCSV string

var byByte map[byte]string

func init() {
	byByte = make(map[byte]string)

	var rows []Descriptor
	if err := gocsv.UnmarshalString(rawCSV, &rows); err != nil {
		panic(err)
	}

	for _, row := range rows {
		b := parseHexByte(row.Byte)
		byByte[b] = row.Description
	}
}

// parseHexByte parses a two-hex-digit string like "F8" into its byte
// value. The embedded table is trusted static data, so malformed rows
// panic at init rather than surfacing a runtime error to callers.
func parseHexByte(s string) byte {
	s = strings.TrimPrefix(strings.ToUpper(s), "0X")
	var value byte
	for _, r := range s {
		var digit byte
		switch {
		case r >= '0' && r <= '9':
			digit = byte(r - '0')
		case r >= 'A' && r <= 'F':
			digit = byte(r-'A') + 10
		default:
			panic("mediatable: malformed hex byte " + s)
		}
		value = value<<4 | digit
	}
	return value
}

// Lookup returns the human-readable description of a BPB Media byte, and
// whether one was found.
func Lookup(b byte) (string, bool) {
	desc, ok := byByte[b]
	return desc, ok
}
