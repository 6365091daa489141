//go:build linux

package inventory

import (
	"os"
	"syscall"
	"time"
)

// creationTime uses the inode change time; Linux exposes no portable birth time.
func creationTime(fi os.FileInfo) time.Time {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return fi.ModTime()
	}
	return time.Unix(int64(st.Ctim.Sec), int64(st.Ctim.Nsec))
}
