package perms

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mode     os.FileMode
		expected string
	}{
		{name: "regular file", mode: RegularFile, expected: "-rw-r--r--"},
		{name: "secure dir", mode: SecureDir, expected: "-rwx------"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.expected, tc.mode.String())
			require.Zero(t, tc.mode&os.ModeType, "modes carry permission bits only")
		})
	}

	// Nothing mirage writes is executable or writable by others.
	require.Zero(t, RegularFile&0o111)
	require.Zero(t, SecureDir&0o077)
}
