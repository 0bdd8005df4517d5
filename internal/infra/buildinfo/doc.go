// Package buildinfo reports the version of the imrelay binaries.
//
// Release builds inject the values with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/imrelay/internal/infra/buildinfo.Version=v1.0.0 \
//	    -X github.com/yndnr/imrelay/internal/infra/buildinfo.Commit=$(git rev-parse HEAD)"
//
// Anything not injected is taken from the module version and VCS stamp
// the go command records in the binary.
package buildinfo
