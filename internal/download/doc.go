// Package download provides the directory-watching completion token used when
// a remote session cannot tie a download request to the file it produces.
//
// The token treats the newest file with the expected extension that was not
// present (or was modified) after a snapshot as the result. That guess is only
// sound while one download is in flight at a time, which the acquisition
// stage and the run lock guarantee.
package download
