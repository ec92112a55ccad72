// Package version describes the running xref build.
package version

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/standardbeagle/xref/internal/storage"
)

// Module is the import path of xref.
const Module = "github.com/standardbeagle/xref"

// Version is the current semantic version of xref.
const Version = "0.1.0"

// Stamped at link time:
//
//	go build -ldflags "-X github.com/standardbeagle/xref/internal/version.GitCommit=$(git rev-parse HEAD)"
var (
	GitCommit = "unknown"
	BuildDate = "development"
)

// Info returns the version string.
func Info() string {
	return Version
}

// FullInfo returns the version, build stamps and the node format written by
// this build.
func FullInfo() string {
	return fmt.Sprintf("xref %s (commit: %s, built: %s, node format: %d)", Version, GitCommit, BuildDate, storage.FormatVersion)
}

var (
	buildID     string
	buildIDOnce sync.Once
)

// BuildID returns "xref-" followed by a fingerprint of the module version, the
// node format and, when available, the Go toolchain and VCS state of the binary.
func BuildID() string {
	buildIDOnce.Do(func() {
		buildID = computeBuildID()
	})
	return buildID
}

func computeBuildID() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s@%s format=%d", Module, Version, storage.FormatVersion)

	info, ok := debug.ReadBuildInfo()
	if !ok {
		fmt.Fprintf(h, " commit=%s", GitCommit)
	} else {
		fmt.Fprintf(h, " go=%s main=%s@%s", info.GoVersion, info.Main.Path, info.Main.Version)
		for _, s := range info.Settings {
			if strings.HasPrefix(s.Key, "vcs.") {
				fmt.Fprintf(h, " %s=%s", s.Key, s.Value)
			}
		}
	}
	return "xref-" + hex.EncodeToString(h.Sum(nil))[:16]
}
