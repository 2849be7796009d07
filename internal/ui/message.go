package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodtunes/internal/models"
	"github.com/desertthunder/moodtunes/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgUserChanged MsgKind = iota
	MsgCameraOpened
	MsgImageReady
	MsgProgressUpdate
	MsgDetectionComplete
	MsgSignInComplete
)

// detection is one in-flight detect-and-recommend run.
type detection struct {
	progress chan tasks.ProgressUpdate
	done     chan detectionResult
}

type detectionResult struct {
	run    *detection
	result *tasks.Result
	err    error
}

// userChangedMsg is the constructor for [MsgUserChanged]
func userChangedMsg(user *models.User) Msg {
	return Msg{kind: MsgUserChanged, data: user}
}

// cameraOpenedMsg is the constructor for [MsgCameraOpened]
func cameraOpenedMsg(err error) Msg {
	return Msg{kind: MsgCameraOpened, data: err}
}

// imageReadyMsg is the constructor for [MsgImageReady]
func imageReadyMsg(img *models.PendingImage, err error) Msg {
	return Msg{
		kind: MsgImageReady,
		data: struct {
			image *models.PendingImage
			err   error
		}{img, err},
	}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(run *detection, update tasks.ProgressUpdate) Msg {
	return Msg{
		kind: MsgProgressUpdate,
		data: struct {
			run    *detection
			update tasks.ProgressUpdate
		}{run, update},
	}
}

// detectionCompleteMsg is the constructor for [MsgDetectionComplete]
func detectionCompleteMsg(res detectionResult) Msg {
	return Msg{kind: MsgDetectionComplete, data: res}
}

// signInCompleteMsg is the constructor for [MsgSignInComplete]
func signInCompleteMsg(err error) Msg {
	return Msg{kind: MsgSignInComplete, data: err}
}
