package cmd

// version is set at build time using -ldflags "-X github.com/mirage-net/mirage/internal/cmd.version=...".
var version = "dev"

// AppName returns the name of the binary.
func AppName() string {
	return "mirage"
}

// Version returns the build version of the binary.
func Version() string {
	return version
}
