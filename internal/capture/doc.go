// Package capture owns the single pending image that will be submitted for detection.
//
// A [Session] acquires an image either from a live camera [Stream] or from a file chosen by the user.
// Exactly one [models.PendingImage] is held at a time and every capture or selection replaces it.
//
// # Camera
//
// [Camera] abstracts the default video input. [NewDeviceCamera] uses pion/mediadevices on Linux (V4L2);
// other platforms report [shared.ErrMediaAccess]. Acquiring a new stream always releases the previous one first.
//
// # Frames
//
// Captured frames are scaled onto a fixed-size canvas (letterboxed, aspect preserved) with golang.org/x/image/draw
// and encoded as PNG.
package capture
