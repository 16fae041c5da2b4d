// Package watch signals when a settings file changes on disk.
//
// The parent directory is watched rather than the file itself so that
// editors and atomic writers that replace the file by rename are still
// seen. Bursts of events are coalesced into a single notification.
package watch
