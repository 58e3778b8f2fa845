// Package perms holds the file and directory modes mirage creates things with.
package perms

import "os"

const (
	// RegularFile is used for the config file and log files.
	RegularFile os.FileMode = 0o644

	// SecureDir is used for the peer store directory, which holds every peer's address.
	SecureDir os.FileMode = 0o700
)
