//go:build !windows

package source

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapFile maps f read-only into the process address space for zero-copy
// access. The returned closer must be called before the file itself is
// closed.
func mmapFile(f *os.File, size int64) ([]byte, func() error, error) {
	if size == 0 {
		// mmap of a zero-length file is undefined on most platforms; treat
		// it as an empty mapped image without touching the kernel.
		return []byte{}, func() error { return nil }, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	closer := func() error {
		return unix.Munmap(data)
	}
	return data, closer, nil
}
