// Package browser drives the remote motion catalog through a Chromium
// instance controlled with go-rod. Every control is located by a configurable
// CSS selector and every wait is bounded; downloads are correlated through the
// DevTools download events so the resulting file is known without guessing.
package browser
