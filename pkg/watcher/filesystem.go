package watcher

import (
	"os"
	"path/filepath"
	"strings"
)

// FilesystemType classifies the filesystem backing a watched path.
type FilesystemType int

const (
	FSTypeUnknown FilesystemType = iota
	FSTypeLocal
	FSTypeNFS
	FSTypeSMB
	FSTypeSSHFS
	FSTypeFUSE
)

// String returns a short lowercase name for the filesystem type.
func (t FilesystemType) String() string {
	switch t {
	case FSTypeLocal:
		return "local"
	case FSTypeNFS:
		return "nfs"
	case FSTypeSMB:
		return "smb"
	case FSTypeSSHFS:
		return "sshfs"
	case FSTypeFUSE:
		return "fuse"
	default:
		return "unknown"
	}
}

// detectFilesystemTypeFunc is swapped out in tests.
var detectFilesystemTypeFunc = DetectFilesystemType

// DetectFilesystemType classifies the filesystem backing path. Detection
// reads the mount table on Linux; on other platforms, or when the table is
// unreadable, it reports FSTypeUnknown. A path that does not exist yet is
// classified by its nearest existing ancestor.
func DetectFilesystemType(path string) FilesystemType {
	if strings.TrimSpace(path) == "" {
		return FSTypeUnknown
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return FSTypeUnknown
	}

	// Walk up to an existing ancestor so detection works before the first
	// write creates the file.
	probe := abs
	for {
		if _, err := os.Stat(probe); err == nil {
			break
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			break
		}
		probe = parent
	}

	if resolved, err := filepath.EvalSymlinks(probe); err == nil {
		probe = resolved
	}

	return fsTypeFromMountTable(probe)
}

// fsTypeFromMountTable matches probe against the longest mount point in
// /proc/self/mounts and classifies that mount's filesystem name.
func fsTypeFromMountTable(probe string) FilesystemType {
	data, err := os.ReadFile("/proc/self/mounts")
	if err != nil {
		return FSTypeUnknown
	}

	best := FSTypeUnknown
	bestLen := -1
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		mountPoint, fsName := fields[1], fields[2]
		if !pathWithin(probe, mountPoint) {
			continue
		}
		if len(mountPoint) > bestLen {
			bestLen = len(mountPoint)
			best = classifyFilesystemName(fsName)
		}
	}
	return best
}

func pathWithin(path, mountPoint string) bool {
	if mountPoint == "/" {
		return true
	}
	return path == mountPoint || strings.HasPrefix(path, mountPoint+"/")
}

func classifyFilesystemName(name string) FilesystemType {
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "nfs"):
		return FSTypeNFS
	case lower == "cifs" || strings.HasPrefix(lower, "smb"):
		return FSTypeSMB
	case strings.Contains(lower, "sshfs"):
		return FSTypeSSHFS
	case lower == "fuseblk" || strings.HasPrefix(lower, "fuse"):
		return FSTypeFUSE
	default:
		return FSTypeLocal
	}
}

// isRemoteFilesystem reports whether inotify events are unreliable for the
// given filesystem type. Network and FUSE mounts frequently drop them, so
// the watcher falls back to polling there.
func isRemoteFilesystem(t FilesystemType) bool {
	switch t {
	case FSTypeNFS, FSTypeSMB, FSTypeSSHFS, FSTypeFUSE:
		return true
	default:
		return false
	}
}
