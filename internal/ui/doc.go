// Package ui implements the interactive dashboard using bubbletea's Elm architecture.
//
// The dashboard mirrors a single screen with four regions:
//  1. Capture panel : open the camera, capture a frame or pick an image file
//  2. Detection panel : the detected emotion with a spinner while a request is in flight
//  3. Recommendations : a [list.Model] of tracks, enter plays the selected one
//  4. Player bar : the track under the playback cursor with prev/play/next controls
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Blocking work (camera access, detection, sign-in) runs in [tea.Cmd] functions; detection progress flows through a
// channel from the [tasks.Recommender], the same way the CLI reports it.
//
// When sign-in is required the dashboard renders a sign-in screen until the [identity.Gate] reports a user.
package ui
