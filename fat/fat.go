// Package fat implements spec.md §4.4's FAT Entry model: classifying a
// 32-bit File Allocation Table slot as free, a pointer to the next cluster,
// bad, or end-of-chain.
//
// Grounded on original_source/src/fat.rs's FatEntry, the clearest 1:1 match
// in the retrieved corpus, generalized into Go value-type idiom and renamed
// to fit alongside this module's ClusterID-style naming from
// drivers/fat/driverbase.go.
package fat

// Cluster is a cluster number in the data region of a FAT32 volume. Valid
// data clusters start at 2.
type Cluster uint32

// reservedMask keeps only the 28 significant bits of a raw FAT32 slot; the
// top 4 bits are reserved on disk and must never affect classification.
const reservedMask = 0x0FFFFFFF

const (
	freeValue     = 0x00000000
	reservedValue = 0x00000001
	badValue      = 0x0FFFFFF7
	endThreshold  = 0x0FFFFFF8
)

// Entry is a single FAT slot, always pre-masked to its low 28 bits.
type Entry uint32

// NewEntry masks a raw 32-bit FAT slot to its classification-relevant bits.
func NewEntry(raw uint32) Entry {
	return Entry(raw & reservedMask)
}

// IsFree reports whether this slot marks its cluster as unallocated.
func (e Entry) IsFree() bool {
	return uint32(e) == freeValue
}

// IsReserved reports whether this slot holds the reserved value 0x1, which
// spec.md §3 treats as an invalid next-cluster pointer.
func (e Entry) IsReserved() bool {
	return uint32(e) == reservedValue
}

// IsBad reports whether this slot marks its cluster as bad.
func (e Entry) IsBad() bool {
	return uint32(e) == badValue
}

// IsEnd reports whether this slot marks the end of a cluster chain.
func (e Entry) IsEnd() bool {
	return uint32(e) >= endThreshold
}

// NextCluster returns the cluster this entry points to and true, unless the
// entry is free, reserved, bad, or end-of-chain, in which case it returns
// (0, false).
func (e Entry) NextCluster() (Cluster, bool) {
	if e.IsFree() || e.IsReserved() || e.IsBad() || e.IsEnd() {
		return 0, false
	}
	return Cluster(e), true
}
