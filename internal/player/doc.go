// Package player keeps an ordered list of recommended tracks and a cursor, and drives one audio output.
//
// [Session] never wraps around: [Session.Next] on the last track and [Session.Previous] on the first
// replay the same track. Tracks without a preview URL can be selected but stop playback instead of
// loading a new source.
//
// Outputs:
//   - [ExecOutput] runs an external player such as ffplay, one process at a time
//   - [BrowserOutput] hands the preview URL to the system browser
package player
