package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodtunes/internal/capture"
	"github.com/desertthunder/moodtunes/internal/identity"
	"github.com/desertthunder/moodtunes/internal/models"
	"github.com/desertthunder/moodtunes/internal/player"
	"github.com/desertthunder/moodtunes/internal/shared"
	"github.com/desertthunder/moodtunes/internal/tasks"
)

// Deps are the components the dashboard drives.
type Deps struct {
	Capture     *capture.Session
	Recommender *tasks.Recommender
	Player      *player.Session
	Gate        *identity.Gate
	RequireUser bool

	// SignIn runs the interactive sign-in, if available. Success is observed through Gate.
	SignIn func(ctx context.Context) error
	Logger *log.Logger
}

// noticeLevel selects the style of the notice line.
type noticeLevel int

const (
	noticeInfo noticeLevel = iota
	noticeWarn
	noticeError
)

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	capture     *capture.Session
	recommender *tasks.Recommender
	player      *player.Session
	gate        *identity.Gate
	requireUser bool
	signIn      func(ctx context.Context) error
	logger      *log.Logger

	user      *models.User
	users     chan *models.User
	unobserve func()

	width     int
	height    int
	tracks    list.Model
	spinner   spinner.Model
	fileInput textinput.Model
	choosing  bool
	running   *detection
	progress  tasks.ProgressUpdate
	signingIn bool
	notice    string
	level     noticeLevel
	help      help.Model
	keys      keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, deps Deps) *Model {
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}

	tracks := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	tracks.Title = "Recommendations"
	tracks.SetFilteringEnabled(false)
	tracks.SetShowHelp(false)
	tracks.DisableQuitKeybindings()

	input := textinput.New()
	input.Placeholder = "path/to/photo.jpg"
	input.Prompt = "image: "

	m := &Model{
		ctx:         ctx,
		capture:     deps.Capture,
		recommender: deps.Recommender,
		player:      deps.Player,
		gate:        deps.Gate,
		requireUser: deps.RequireUser,
		signIn:      deps.SignIn,
		logger:      deps.Logger,
		users:       make(chan *models.User, 1),
		tracks:      tracks,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		fileInput:   input,
		help:        help.New(),
		keys:        newKeyMap(),
	}

	if m.gate != nil {
		m.unobserve = m.gate.Observe(m.observeUser)
	}
	return m
}

// Init starts the spinner and begins listening for identity changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUser())
}

// Close releases the camera, stops playback and stops observing the identity gate.
func (m *Model) Close() {
	if m.unobserve != nil {
		m.unobserve()
		m.unobserve = nil
	}
	if m.player != nil {
		m.player.Stop()
	}
	if m.capture != nil {
		if err := m.capture.Close(); err != nil {
			m.logger.Debug("failed to release camera", "error", err)
		}
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.tracks.SetSize(msg.Width-4, max(msg.Height-18, 6))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

// View renders the dashboard, or the sign-in screen when a user is required.
func (m *Model) View() string {
	if m.locked() {
		return m.renderSignIn()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.renderCapture(), " ", m.renderDetection()))
	b.WriteString("\n")

	if m.choosing {
		b.WriteString(m.fileInput.View())
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(m.renderNotice())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if len(m.tracks.Items()) == 0 {
		b.WriteString(styles.help.Render("No recommendations yet"))
	} else {
		b.WriteString(m.tracks.View())
	}
	b.WriteString("\n")
	b.WriteString(m.renderPlayer())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) locked() bool {
	return m.requireUser && m.user == nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.Close()
		return m, tea.Quit
	}

	if m.choosing {
		return m.handleFileKeys(msg)
	}

	if key.Matches(msg, m.keys.quit) {
		m.Close()
		return m, tea.Quit
	}

	if m.locked() {
		if key.Matches(msg, m.keys.login) {
			return m, m.startSignIn()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.camera):
		m.setNotice(noticeInfo, "Opening camera...")
		return m, m.openCamera()
	case key.Matches(msg, m.keys.capture):
		return m, m.captureFrame()
	case key.Matches(msg, m.keys.file):
		m.choosing = true
		m.fileInput.SetValue("")
		return m, m.fileInput.Focus()
	case key.Matches(msg, m.keys.detect):
		return m, m.detect()
	case key.Matches(msg, m.keys.play):
		m.playAt(m.tracks.Index())
		return m, nil
	case key.Matches(msg, m.keys.current):
		if cursor, ok := m.player.Cursor(); ok {
			m.playAt(cursor)
		}
		return m, nil
	case key.Matches(msg, m.keys.next):
		m.player.Next(m.ctx)
		m.syncSelection()
		return m, nil
	case key.Matches(msg, m.keys.previous):
		m.player.Previous(m.ctx)
		m.syncSelection()
		return m, nil
	case key.Matches(msg, m.keys.stop):
		m.player.Stop()
		return m, nil
	case key.Matches(msg, m.keys.logout):
		return m, m.signOut()
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	var cmd tea.Cmd
	m.tracks, cmd = m.tracks.Update(msg)
	return m, cmd
}

func (m *Model) handleFileKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.cancel):
		m.choosing = false
		m.fileInput.Blur()
		return m, nil
	case msg.Type == tea.KeyEnter:
		path := strings.TrimSpace(m.fileInput.Value())
		m.choosing = false
		m.fileInput.Blur()
		if path == "" {
			return m, nil
		}
		return m, m.selectPath(path)
	}

	var cmd tea.Cmd
	m.fileInput, cmd = m.fileInput.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgUserChanged:
		m.user, _ = msg.data.(*models.User)
		return m, m.waitForUser()

	case MsgCameraOpened:
		if err, ok := msg.data.(error); ok && err != nil {
			m.setNotice(noticeError, "Camera access failed. Check that a camera is connected and permitted.")
			m.logger.Debug("camera access failed", "error", err)
			return m, nil
		}
		m.setNotice(noticeInfo, "Camera ready. Press c to capture.")

	case MsgImageReady:
		data := msg.data.(struct {
			image *models.PendingImage
			err   error
		})
		if data.err != nil {
			m.setNotice(noticeError, imageError(data.err))
			return m, nil
		}
		if m.running != nil {
			m.recommender.Invalidate()
			m.running = nil
			m.setNotice(noticeWarn, fmt.Sprintf("Using %s. The running detection was discarded.", data.image.Name))
			return m, nil
		}
		m.setNotice(noticeInfo, fmt.Sprintf("Image ready: %s (%s). Press d to detect.", data.image.Name, formatSize(len(data.image.Data))))

	case MsgProgressUpdate:
		data := msg.data.(struct {
			run    *detection
			update tasks.ProgressUpdate
		})
		if data.run != m.running {
			return m, nil
		}
		m.progress = data.update
		return m, waitForDetection(data.run)

	case MsgDetectionComplete:
		res := msg.data.(detectionResult)
		if res.run != m.running {
			return m, nil
		}
		m.running = nil
		if res.err != nil {
			if errors.Is(res.err, shared.ErrSuperseded) {
				return m, nil
			}
			m.setNotice(noticeError, "Failed to detect emotion or get recommendations. Please try again.")
			return m, nil
		}
		m.player.Replace(res.result.Tracks)
		cmd := m.tracks.SetItems(trackItems(res.result.Tracks))
		m.tracks.Select(0)
		m.setNotice(noticeInfo, fmt.Sprintf("Detected %s: %d tracks", res.result.Label, res.result.Tracks.Len()))
		return m, cmd

	case MsgSignInComplete:
		m.signingIn = false
		if err, ok := msg.data.(error); ok && err != nil {
			m.setNotice(noticeError, fmt.Sprintf("Sign-in failed: %v", err))
			return m, nil
		}
		m.notice = ""
	}

	return m, nil
}

func imageError(err error) string {
	switch {
	case errors.Is(err, shared.ErrNoActiveStream):
		return "No camera stream. Press o to open the camera first."
	case errors.Is(err, shared.ErrMediaAccess):
		return "Could not read a frame from the camera."
	case errors.Is(err, shared.ErrInvalidInput):
		return "That file is not an image."
	default:
		return fmt.Sprintf("Could not load image: %v", err)
	}
}

func (m *Model) setNotice(level noticeLevel, text string) {
	m.level = level
	m.notice = text
}

func (m *Model) playAt(i int) {
	m.player.PlayAt(m.ctx, i)
	if track, ok := m.player.Current(); ok && !track.HasPreview() {
		m.setNotice(noticeWarn, fmt.Sprintf("%s has no preview", track.Name))
	}
	m.syncSelection()
}

// syncSelection moves the list highlight to the playback cursor.
func (m *Model) syncSelection() {
	if cursor, ok := m.player.Cursor(); ok {
		m.tracks.Select(cursor)
	}
}

func (m *Model) detect() tea.Cmd {
	if m.running != nil || m.recommender.Loading() {
		m.setNotice(noticeWarn, "A detection is already running.")
		return nil
	}

	img := m.capture.Pending()
	if img == nil {
		m.setNotice(noticeError, "Upload or capture an image first.")
		return nil
	}

	m.notice = ""
	m.progress = tasks.ProgressUpdate{}
	m.running = &detection{
		progress: make(chan tasks.ProgressUpdate, 4),
		done:     make(chan detectionResult, 1),
	}

	run := m.running
	go func() {
		result, err := m.recommender.DetectAndRecommend(m.ctx, img, run.progress)
		close(run.progress)
		run.done <- detectionResult{run: run, result: result, err: err}
	}()

	return waitForDetection(run)
}

func waitForDetection(run *detection) tea.Cmd {
	return func() tea.Msg {
		if update, ok := <-run.progress; ok {
			return progressUpdateMsg(run, update)
		}
		return detectionCompleteMsg(<-run.done)
	}
}

func (m *Model) openCamera() tea.Cmd {
	return func() tea.Msg {
		return cameraOpenedMsg(m.capture.RequestCameraAccess(m.ctx))
	}
}

func (m *Model) captureFrame() tea.Cmd {
	return func() tea.Msg {
		img, err := m.capture.CaptureFrame(m.ctx)
		return imageReadyMsg(img, err)
	}
}

func (m *Model) selectPath(path string) tea.Cmd {
	return func() tea.Msg {
		img, err := m.capture.SelectPath(path)
		return imageReadyMsg(img, err)
	}
}

func (m *Model) startSignIn() tea.Cmd {
	if m.signIn == nil {
		m.setNotice(noticeWarn, "Run `moodtunes auth login` in another terminal.")
		return nil
	}
	if m.signingIn {
		return nil
	}

	m.signingIn = true
	m.setNotice(noticeInfo, "Complete sign-in in your browser...")
	return func() tea.Msg {
		return signInCompleteMsg(m.signIn(m.ctx))
	}
}

func (m *Model) signOut() tea.Cmd {
	if m.gate == nil {
		return nil
	}
	return func() tea.Msg {
		if err := m.gate.SignOut(m.ctx); err != nil {
			m.logger.Error("sign out failed", "error", err)
		}
		return nil
	}
}

// observeUser forwards gate notifications to the program, keeping only the latest user.
func (m *Model) observeUser(user *models.User) {
	select {
	case <-m.users:
	default:
	}
	select {
	case m.users <- user:
	default:
	}
}

func (m *Model) waitForUser() tea.Cmd {
	if m.gate == nil {
		return nil
	}
	return func() tea.Msg {
		return userChangedMsg(<-m.users)
	}
}

func (m *Model) renderSignIn() string {
	title := styles.title.Render("moodtunes")
	body := "Sign in to detect your mood and get music recommendations."
	if m.signingIn {
		body = fmt.Sprintf("%s Waiting for the browser...", m.spinner.View())
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.login, m.keys.quit})

	var notice string
	if m.notice != "" {
		notice = "\n" + m.renderNotice() + "\n"
	}
	return fmt.Sprintf("%s\n%s\n%s\n%s", title, body, notice, helpView)
}

func (m *Model) renderHeader() string {
	title := styles.title.Render("moodtunes")
	if m.user == nil {
		return title
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", styles.help.Render("signed in as "+m.user.DisplayName()))
}

func (m *Model) renderCapture() string {
	camera := "off"
	if m.capture.Active() {
		camera = styles.ok.Render("live")
	}

	image := styles.help.Render("Drag or upload an image")
	if img := m.capture.Pending(); img != nil {
		image = fmt.Sprintf("%s (%s, %s)", img.Name, img.MIMEType, formatSize(len(img.Data)))
	}

	preview := "none"
	if _, ok := m.capture.PreviewURL(); ok {
		preview = "ready"
	}

	content := fmt.Sprintf("%s\ncamera:  %s\nimage:   %s\npreview: %s",
		styles.title.Render("Upload or Capture Your Photo"), camera, image, preview)
	return styles.panel.Render(content)
}

func (m *Model) renderDetection() string {
	var status string
	switch {
	case m.running != nil:
		status = fmt.Sprintf("%s %s", m.spinner.View(), progressText(m.progress))
	default:
		snap := m.recommender.Snapshot()
		if snap.HasLabel {
			status = styles.emotion.Render(snap.Label)
		} else {
			status = styles.help.Render("No detection yet")
		}
	}

	return styles.panel.Render(fmt.Sprintf("%s\n%s", styles.title.Render("Detection"), status))
}

func progressText(update tasks.ProgressUpdate) string {
	if update.Message != "" {
		return update.Message
	}
	return "Detecting..."
}

func (m *Model) renderNotice() string {
	switch m.level {
	case noticeError:
		return styles.err.Render(m.notice)
	case noticeWarn:
		return styles.warn.Render(m.notice)
	default:
		return styles.ok.Render(m.notice)
	}
}

func (m *Model) renderPlayer() string {
	track, ok := m.player.Current()
	if !ok {
		return styles.bar.Render(styles.help.Render("No track loaded"))
	}

	cursor, _ := m.player.Cursor()
	now := fmt.Sprintf("%s  %s", styles.ok.Render(track.Name), track.Artist)
	if !track.HasPreview() {
		now += styles.warn.Render("  (no preview)")
	}

	controls := m.help.ShortHelpView([]key.Binding{m.keys.previous, m.keys.current, m.keys.next, m.keys.stop})
	position := styles.help.Render(fmt.Sprintf("%d/%d", cursor+1, m.player.Tracks().Len()))
	return styles.bar.Render(fmt.Sprintf("%s  %s\n%s", now, position, controls))
}

func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
