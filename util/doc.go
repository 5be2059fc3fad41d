// Package util holds small parsing helpers shared by configuration and the
// HTTP host.
package util
