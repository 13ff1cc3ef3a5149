package preflight

import (
	"fmt"
	"syscall"

	"github.com/dustin/go-humanize"
)

// MinDiskSpaceBytes is the free space the data directory needs.
const MinDiskSpaceBytes = 100 * 1024 * 1024

// MinFileDescriptors is the descriptor limit below which watching large
// inboxes may fail.
const MinFileDescriptors = 1024

// CheckDiskSpace checks the free space on the filesystem holding path.
func (c *Checker) CheckDiskSpace(path string) CheckResult {
	result := CheckResult{Name: "disk_space", Required: true}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot read free space: %v", err)
		return result
	}

	free := stat.Bavail * uint64(stat.Bsize)
	result.Message = fmt.Sprintf("%s free (minimum %s)", humanize.IBytes(free), humanize.IBytes(MinDiskSpaceBytes))
	if free < MinDiskSpaceBytes {
		result.Status = StatusFail
		return result
	}
	result.Status = StatusPass
	return result
}

// CheckFileDescriptors checks the soft RLIMIT_NOFILE.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{Name: "file_descriptors"}

	var lim syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &lim); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot read limit: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%d (minimum %d)", lim.Cur, MinFileDescriptors)
	if lim.Cur < MinFileDescriptors {
		result.Status = StatusWarn
		result.Details = "Run 'ulimit -n 10240' before docrag watch"
		return result
	}
	result.Status = StatusPass
	return result
}
