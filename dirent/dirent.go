// Package dirent decodes short-name (8.3) FAT32 directory entries.
//
// Grounded on drivers/fat/dirent.go (RawDirent, NewRawDirentFromBytes,
// DateFromInt, TimestampFromParts, AttrFlagsToFileMode), cross-checked
// against original_source/src/dir_entry.rs for the is_unused/is_dir/
// first_cluster semantics. Long-filename fragments are recognized (so
// callers can skip them) but never assembled -- LFN support is explicitly
// out of scope (spec.md §1).
package dirent

import (
	"encoding/binary"
	"os"
	"strings"
	"time"

	"github.com/arlowen/fat32ro/fat"
)

// Size is the width of a single raw directory entry, in bytes.
const Size = 32

// Attribute bit values, per spec.md §3.
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeID  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20
	// AttrLongName is the combination (read-only|hidden|system|volume-id)
	// that marks a fragment of a long-filename entry.
	AttrLongName = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID
)

const (
	nameFreeByte    = 0x00
	nameDeletedByte = 0xE5
)

// Entry is a decoded short-name directory entry.
type Entry struct {
	name          string
	attributes    uint8
	firstCluster  fat.Cluster
	fileSize      uint32
	created       time.Time
	lastAccessed  time.Time
	lastModified  time.Time
	firstNameByte byte
}

// Decode interprets 32 contiguous bytes as a directory entry. It never
// fails: callers branch on IsEndMarker/IsDeleted/IsLongName/IsVolumeLabel
// before trusting the rest of the fields, exactly as spec.md §4.5 requires.
// raw must be at least Size (32) bytes long.
func Decode(raw []byte) Entry {
	attributes := raw[11]
	createdTimeMillis := raw[13]
	createdTime := binary.LittleEndian.Uint16(raw[14:16])
	createdDate := binary.LittleEndian.Uint16(raw[16:18])
	lastAccessDate := binary.LittleEndian.Uint16(raw[18:20])
	firstClusterHigh := binary.LittleEndian.Uint16(raw[20:22])
	writeTime := binary.LittleEndian.Uint16(raw[22:24])
	writeDate := binary.LittleEndian.Uint16(raw[24:26])
	firstClusterLow := binary.LittleEndian.Uint16(raw[26:28])
	fileSize := binary.LittleEndian.Uint32(raw[28:32])

	nameField := string(raw[0:8])
	extField := string(raw[8:11])

	var name string
	if raw[0] != nameFreeByte && raw[0] != nameDeletedByte {
		trimmedName := strings.TrimRight(nameField, " ")
		trimmedExt := strings.TrimRight(extField, " ")
		if trimmedExt == "" {
			name = trimmedName
		} else {
			name = trimmedName + "." + trimmedExt
		}
	}

	return Entry{
		name:          name,
		attributes:    attributes,
		firstNameByte: raw[0],
		firstCluster:  fat.Cluster((uint32(firstClusterHigh) << 16) | uint32(firstClusterLow)),
		fileSize:      fileSize,
		created:       dateFromInt(createdDate).Add(timeOfDay(createdTime, createdTimeMillis)),
		lastAccessed:  dateFromInt(lastAccessDate),
		lastModified:  dateFromInt(writeDate).Add(timeOfDay(writeTime, 0)),
	}
}

// dateFromInt converts the FAT on-disk date representation into a
// time.Time at midnight, ported from the teacher's DateFromInt.
func dateFromInt(value uint16) time.Time {
	day := int(value & 0x001f)
	month := time.Month((value >> 5) & 0x000f)
	year := 1980 + int(value>>9)
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// timeOfDay converts the FAT on-disk time field (plus optional
// hundredths-of-a-second, used only for creation time) into a duration
// since midnight, ported from the teacher's TimestampFromParts.
func timeOfDay(value uint16, hundredths uint8) time.Duration {
	seconds := int((value & 0x001f) * 2)
	if hundredths >= 100 {
		seconds++
		hundredths -= 100
	}
	minutes := int((value >> 5) & 0x003f)
	hours := int(value >> 11)
	nanos := int(hundredths) * 10_000_000

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(nanos)
}

// IsEndMarker reports whether this entry's first name byte is the
// directory terminator (0x00): no further entries follow in this
// directory.
func (e Entry) IsEndMarker() bool {
	return e.firstNameByte == nameFreeByte
}

// IsDeleted reports whether this entry's slot is a deleted file (first name
// byte 0xE5). Unlike the teacher's NewDirentFromRaw, this module does not
// attempt to recover the original first character from CreatedTimeMillis --
// that recovery exists to support undeleting files, a write-adjacent
// feature out of scope for a read-only parser. A deleted entry's Name is
// therefore not meaningful and callers should skip it, per spec.md §4.6.
func (e Entry) IsDeleted() bool {
	return e.firstNameByte == nameDeletedByte
}

// IsUnused reports whether the slot is free or deleted, i.e. not a live
// entry.
func (e Entry) IsUnused() bool {
	return e.IsEndMarker() || e.IsDeleted()
}

// IsDir reports whether the entry's attribute byte marks a subdirectory.
func (e Entry) IsDir() bool {
	return e.attributes&AttrDirectory != 0
}

// IsVolumeLabel reports whether the entry holds the volume's label.
func (e Entry) IsVolumeLabel() bool {
	return e.attributes&AttrVolumeID != 0 && e.attributes&AttrLongName != AttrLongName
}

// IsLongName reports whether the entry is a long-filename fragment
// (attribute low nibble 0x0F). This module recognizes it only to skip it.
func (e Entry) IsLongName() bool {
	return e.attributes&AttrLongName == AttrLongName
}

// Name returns the reconstructed 8.3 short name, e.g. "README.TXT".
func (e Entry) Name() string { return e.name }

// FirstCluster returns the first cluster of the file or directory this
// entry describes.
func (e Entry) FirstCluster() fat.Cluster { return e.firstCluster }

// FileSize returns the size in bytes recorded for this entry. Directories
// always report 0 here; their true size can only be found by walking them.
func (e Entry) FileSize() uint32 { return e.fileSize }

// Mode reports a Go os.FileMode approximation of the entry's attributes,
// ported from the teacher's AttrFlagsToFileMode. FAT has no notion of an
// executable bit for regular files.
func (e Entry) Mode() os.FileMode {
	if e.IsDir() {
		return os.ModeDir | 0o555
	}
	if e.attributes&AttrReadOnly != 0 {
		return 0o444
	}
	return 0o644
}

// Created returns the entry's creation timestamp.
func (e Entry) Created() time.Time { return e.created }

// LastAccessed returns the entry's last-access date (FAT32 stores no
// time-of-day component for this field).
func (e Entry) LastAccessed() time.Time { return e.lastAccessed }

// LastModified returns the entry's last-write timestamp.
func (e Entry) LastModified() time.Time { return e.lastModified }
