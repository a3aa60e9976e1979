package archive

import (
	"archive/tar"
	"fmt"

	"golang.org/x/sys/unix"
)

// mknod recreates a FIFO, character, or block device entry extracted from
// an archive. Wright only builds for Linux-from-scratch targets, so this
// calls unix.Mknod directly rather than going through a portability shim.
func mknod(target string, hdr *tar.Header) error {
	mode := uint32(hdr.Mode & 0o777)
	switch hdr.Typeflag {
	case tar.TypeFifo:
		mode |= unix.S_IFIFO
		return unix.Mknod(target, mode, 0)
	case tar.TypeChar:
		mode |= unix.S_IFCHR
		dev := unix.Mkdev(uint32(hdr.Devmajor), uint32(hdr.Devminor))
		return unix.Mknod(target, mode, int(dev))
	case tar.TypeBlock:
		mode |= unix.S_IFBLK
		dev := unix.Mkdev(uint32(hdr.Devmajor), uint32(hdr.Devminor))
		return unix.Mknod(target, mode, int(dev))
	default:
		return fmt.Errorf("unsupported device typeflag %q", hdr.Typeflag)
	}
}
