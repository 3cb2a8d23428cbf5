// Package version records the kdbg release
package version

// VERSION is the current kdbg version, it is written into run info files so that outputs from mismatched versions can be rejected
const VERSION = "0.1.0"
