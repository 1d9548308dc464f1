// Command fat32ro is a read-only inspector for FAT32 volumes: mount an
// image or block device and list, dump, or audit its contents without ever
// writing to it.
//
// Grounded on cmd/main.go's urfave/cli/v2 App/Command skeleton; the
// subcommands themselves (info, ls, cat, fsck) are new, one per
// SPEC_FULL.md §4.9 component. Path resolution for ls/cat lives entirely
// here, not in the library: package fat32 only ever opens a directory by
// cluster number, by design (spec.md's Non-goals exclude path resolution
// from the core).
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/noxer/bytewriter"
	"github.com/urfave/cli/v2"

	"github.com/arlowen/fat32ro/blockdev"
	"github.com/arlowen/fat32ro/bootsector"
	"github.com/arlowen/fat32ro/dirent"
	"github.com/arlowen/fat32ro/fat"
	"github.com/arlowen/fat32ro/fat32"
	"github.com/arlowen/fat32ro/mediatable"
	"github.com/arlowen/fat32ro/volscan"
)

func main() {
	app := &cli.App{
		Name:  "fat32ro",
		Usage: "Inspect FAT32 volumes without mounting or writing to them",
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "Print the decoded boot sector and derived geometry",
				ArgsUsage: "IMAGE",
				Action:    infoCommand,
			},
			{
				Name:      "ls",
				Usage:     "List a directory's entries",
				ArgsUsage: "IMAGE [PATH]",
				Action:    lsCommand,
			},
			{
				Name:      "cat",
				Usage:     "Write a file's contents to stdout, trimmed to its recorded size",
				ArgsUsage: "IMAGE PATH",
				Action:    catCommand,
			},
			{
				Name:      "fsck",
				Usage:     "Census every FAT slot: free, used, bad, unreadable",
				ArgsUsage: "IMAGE",
				Action:    fsckCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fat32ro: %s", err.Error())
	}
}

// fileDevice adapts an *os.File to blockdev.BlockDevice.
type fileDevice struct {
	f          *os.File
	sectorSize uint32
}

func (d *fileDevice) SectorSize() uint32 { return d.sectorSize }

func (d *fileDevice) ReadSectors(lba blockdev.LBA, count uint32, buf []byte) error {
	need := int(count) * int(d.sectorSize)
	if len(buf) < need {
		return blockdev.NewIOError("buffer too small: have %d bytes, need %d", len(buf), need)
	}
	off := int64(lba) * int64(d.sectorSize)
	n, err := d.f.ReadAt(buf[:need], off)
	if err != nil && !errors.Is(err, io.EOF) {
		return blockdev.NewIOError("%s", err.Error())
	}
	if n < need {
		return blockdev.NewIOError("short read at LBA %d: got %d bytes, wanted %d", lba, n, need)
	}
	return nil
}

// openVolume opens path and mounts it read-only with the conventional
// 512-byte sector size; Mount rejects a volume whose BPB declares another.
func openVolume(path string) (*fat32.FS, *fileDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	device := &fileDevice{f: f, sectorSize: blockdev.SectorSize}

	bootSector := make([]byte, blockdev.SectorSize)
	if err := device.ReadSectors(0, 1, bootSector); err != nil {
		f.Close()
		return nil, nil, err
	}

	fs, err := fat32.Mount(device, bootSector)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return fs, device, nil
}

// splitPath breaks a slash-separated PATH argument into its non-empty
// components, so "/" and "" both mean "the root directory" and "foo/"
// means the same as "foo".
func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// resolvePath walks components from the root directory down, one OpenDir
// per level, matching each component against that directory's entries by
// name (case-insensitively, since short names are conventionally stored
// upper-case). It returns ok=false only when components is empty, meaning
// path named the root itself, which has no directory entry of its own.
func resolvePath(fs *fat32.FS, components []string) (dirent.Entry, bool, error) {
	if len(components) == 0 {
		return dirent.Entry{}, false, nil
	}

	cluster := fs.RootCluster()
	var current dirent.Entry

	for i, name := range components {
		it := fs.OpenDir(cluster)
		found := false
		for {
			entry, ok, err := it.Next()
			if err != nil {
				return dirent.Entry{}, false, err
			}
			if !ok {
				break
			}
			if strings.EqualFold(entry.Name(), name) {
				current = entry
				found = true
				break
			}
		}
		if !found {
			return dirent.Entry{}, false, fmt.Errorf("%s: no such file or directory", name)
		}
		if i < len(components)-1 {
			if !current.IsDir() {
				return dirent.Entry{}, false, fmt.Errorf("%s: not a directory", name)
			}
			cluster = current.FirstCluster()
		}
	}

	return current, true, nil
}

func infoCommand(c *cli.Context) error {
	path := c.Args().Get(0)
	if path == "" {
		return cli.Exit("usage: fat32ro info IMAGE", 1)
	}

	fs, device, err := openVolume(path)
	if err != nil {
		return err
	}
	defer device.f.Close()

	geom := fs.Geometry()
	fmt.Printf("bytes per sector:    %d\n", geom.BytesPerSector)
	fmt.Printf("sectors per cluster: %d\n", geom.SectorsPerCluster)
	fmt.Printf("cluster size bytes:  %d\n", geom.ClusterSizeBytes())
	fmt.Printf("FAT start LBA:       %d\n", geom.FATStartLBA)
	fmt.Printf("first data sector:   %d\n", geom.FirstDataSector)
	fmt.Printf("root cluster:        %d\n", geom.RootCluster)

	bootSector := make([]byte, geom.BytesPerSector)
	if err := device.ReadSectors(0, 1, bootSector); err == nil {
		if bpb, err := bootsector.DecodeBPB(bootSector); err == nil {
			if desc, ok := mediatable.Lookup(bpb.Media); ok {
				fmt.Printf("media descriptor:    0x%02X (%s)\n", bpb.Media, desc)
			} else {
				fmt.Printf("media descriptor:    0x%02X (unknown)\n", bpb.Media)
			}
		}
	}
	return nil
}

func lsCommand(c *cli.Context) error {
	path := c.Args().Get(0)
	if path == "" {
		return cli.Exit("usage: fat32ro ls IMAGE [PATH]", 1)
	}

	fs, device, err := openVolume(path)
	if err != nil {
		return err
	}
	defer device.f.Close()

	dirCluster := fs.RootCluster()
	if target, ok, err := resolvePath(fs, splitPath(c.Args().Get(1))); err != nil {
		return err
	} else if ok {
		if !target.IsDir() {
			return fmt.Errorf("%s: not a directory", target.Name())
		}
		dirCluster = target.FirstCluster()
	}

	it := fs.OpenDir(dirCluster)
	for {
		entry, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		kind := "file"
		if entry.IsDir() {
			kind = "dir"
		}
		fmt.Printf("%-4s %10d %s  %s\n", kind, entry.FileSize(), entry.LastModified().Format("2006-01-02 15:04:05"), entry.Name())
	}
}

func catCommand(c *cli.Context) error {
	path := c.Args().Get(0)
	filePath := c.Args().Get(1)
	if path == "" || filePath == "" {
		return cli.Exit("usage: fat32ro cat IMAGE PATH", 1)
	}

	fs, device, err := openVolume(path)
	if err != nil {
		return err
	}
	defer device.f.Close()

	target, ok, err := resolvePath(fs, splitPath(filePath))
	if err != nil {
		return err
	}
	if !ok || target.IsDir() {
		return fmt.Errorf("%s: not a file", filePath)
	}
	if target.FileSize() == 0 {
		// An empty file owns no clusters (its first cluster is 0).
		return nil
	}

	// out is sized to exactly the file's recorded length, and bytewriter
	// tracks how much of it has been filled across calls -- each cluster
	// WalkChain visits writes only its share of the remaining bytes, so the
	// trailing, partially-used cluster at the end of the chain is trimmed
	// rather than dumped whole.
	out := make([]byte, target.FileSize())
	writer := bytewriter.New(out)
	var written uint32

	err = fs.WalkChain(target.FirstCluster(), func(_ fat.Cluster, data []byte) error {
		if written >= target.FileSize() {
			return nil
		}
		remaining := target.FileSize() - written
		if uint32(len(data)) > remaining {
			data = data[:remaining]
		}
		n, err := writer.Write(data)
		if err != nil {
			return err
		}
		written += uint32(n)
		return nil
	})
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(out)
	return err
}

func fsckCommand(c *cli.Context) error {
	path := c.Args().Get(0)
	if path == "" {
		return cli.Exit("usage: fat32ro fsck IMAGE", 1)
	}

	fs, device, err := openVolume(path)
	if err != nil {
		return err
	}
	defer device.f.Close()

	geom := fs.Geometry()
	fi, err := device.f.Stat()
	if err != nil {
		return err
	}
	dataSectors := uint32(fi.Size()/int64(geom.BytesPerSector)) - uint32(geom.FirstDataSector)
	totalClusters := dataSectors / geom.SectorsPerCluster

	report, err := volscan.Scan(fs, totalClusters)
	if err != nil {
		return err
	}

	fmt.Printf("clusters scanned: %d\n", totalClusters)
	fmt.Printf("free:             %d\n", report.Free)
	fmt.Printf("used:             %d\n", report.Used)
	fmt.Printf("bad:              %d\n", report.Bad)
	fmt.Printf("unreadable:       %d\n", report.Unreadable)
	return nil
}
