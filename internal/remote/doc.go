// Package remote describes the capabilities the acquisition stage needs from
// the remote motion catalog: authenticate once, find a clip by name, pick the
// export settings, and start a download whose completion can be awaited.
//
// Session implementations live in subpackages (browser) or in tests. Guard
// layers the login state machine over any Session so a single authentication
// is reused across every catalog item.
package remote
