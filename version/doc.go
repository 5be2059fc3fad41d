// Package version reports the build of the transcribe service: on the
// /version endpoint, in the `transcribe version` command and as the
// User-Agent sent to provider APIs.
//
// Values are set at compile time via -ldflags and fall back to the VCS
// stamp embedded by the Go toolchain:
//
//	go build -ldflags "-X github.com/kbukum/transcribe/version.Version=1.4.0"
package version
