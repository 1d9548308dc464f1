// Package volscan runs a read-only census of every cluster in a mounted
// FAT32 volume's File Allocation Table: how many are free, in use, or
// marked bad. It never allocates, deallocates, or otherwise mutates a
// cluster -- it only calls FS.ReadFATEntry.
//
// Grounded on drivers/common/allocatormap.go's Allocator, which uses
// github.com/boljen/go-bitmap to track which blocks are allocated for
// writing. This package repurposes the same bitmap-of-clusters idea for
// reporting instead of allocating, which fits the "forensic tools" client
// spec.md §1 names as a consumer of this module.
package volscan

import (
	"github.com/boljen/go-bitmap"

	"github.com/arlowen/fat32ro/fat"
	"github.com/arlowen/fat32ro/fat32"
	"github.com/arlowen/fat32ro/fat32err"
)

// Report summarizes a full pass over the FAT.
type Report struct {
	// FreeMap has one bit per scanned cluster (indexed from 0 == cluster
	// 2), set when that cluster's FAT slot is free.
	FreeMap bitmap.Bitmap

	Free uint32
	Used uint32
	Bad  uint32

	// Unreadable counts clusters whose FAT slot could not be read at all
	// (a block device I/O error on that slot specifically); the scan
	// continues past them. This is different from Bad, which is a
	// cluster explicitly marked 0x0FFFFFF7 on disk.
	Unreadable uint32
}

// Scan walks every FAT slot for cluster numbers [2, totalClusters+1],
// classifying each one. It returns a non-nil error only if ReadFATEntry
// fails in a way that isn't a per-slot I/O problem (e.g. an invalid
// cluster number), since that indicates the scan's own bounds are wrong
// rather than a property of the data being surveyed.
func Scan(fs *fat32.FS, totalClusters uint32) (Report, error) {
	freeMap := bitmap.New(int(totalClusters))
	report := Report{FreeMap: freeMap}

	for i := uint32(0); i < totalClusters; i++ {
		cluster := fat.Cluster(i + 2)

		entry, err := fs.ReadFATEntry(cluster)
		if err != nil {
			if ferr, ok := err.(*fat32err.Error); ok && ferr.Kind == fat32err.IO {
				report.Unreadable++
				continue
			}
			return Report{}, err
		}

		switch {
		case entry.IsFree():
			freeMap.Set(int(i), true)
			report.Free++
		case entry.IsBad():
			report.Bad++
		default:
			report.Used++
		}
	}

	return report, nil
}
