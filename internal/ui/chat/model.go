// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/antibia/hrchat-tui/internal/api"
	"github.com/antibia/hrchat-tui/internal/auth"
	"github.com/antibia/hrchat-tui/internal/config"
	"github.com/antibia/hrchat-tui/internal/history"
	"github.com/antibia/hrchat-tui/internal/hr"
	"github.com/antibia/hrchat-tui/internal/model"
	"github.com/antibia/hrchat-tui/internal/realtime"
	"github.com/antibia/hrchat-tui/internal/ui/components"
	"github.com/antibia/hrchat-tui/internal/ui/styles"
)

// view identifies the active screen.
type view int

const (
	viewLogin view = iota
	viewChat
)

// focusTarget identifies what receives keystrokes in the chat view.
type focusTarget int

const (
	focusInput focusTarget = iota
	focusActions
)

// Deps bundles everything the model needs. All fields except History are
// required; History may be nil when the local cache failed to open.
type Deps struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Client  *api.Client
	Session *auth.Session
	HR      *hr.Service
	History *history.Store
}

// Model is the root Bubble Tea model.
type Model struct {
	cfg     *config.Config
	logger  zerolog.Logger
	client  *api.Client
	session *auth.Session
	hr      *hr.Service
	history *history.Store

	theme  *styles.Theme
	view   view
	focus  focusTarget
	width  int
	height int
	ready  bool

	login     *components.LoginForm
	header    *components.Header
	statusBar *components.StatusBar
	spinner   components.Spinner
	actions   *components.ActionPanel
	renderer  *components.MessageRenderer
	cards     *components.CardRenderer

	viewport viewport.Model
	input    textinput.Model

	// channel is recreated on every login. chanMu guards the pointer: the
	// token-rotation callback reads it from outside the update loop.
	chanMu        sync.Mutex
	channel       *realtime.Channel
	sessionEvents chan auth.Event

	messages      []*model.Message
	snapshot      hr.Snapshot
	showDashboard bool
	toast         string
	quitting      bool
}

// New builds the model. When the session was already restored from
// storage the chat view opens directly; otherwise the login form shows.
func New(deps Deps) *Model {
	theme := styles.NewTheme()

	input := textinput.New()
	input.Placeholder = "Posez votre question..."
	input.CharLimit = 2000
	input.Focus()

	m := &Model{
		cfg:           deps.Config,
		logger:        deps.Logger.With().Str("component", "ui").Logger(),
		client:        deps.Client,
		session:       deps.Session,
		hr:            deps.HR,
		history:       deps.History,
		theme:         theme,
		view:          viewLogin,
		login:         components.NewLoginForm(theme),
		header:        components.NewHeader(theme),
		statusBar:     components.NewStatusBar(theme),
		spinner:       components.NewSpinner(theme),
		actions:       components.NewActionPanel(theme),
		renderer:      components.NewMessageRenderer(theme, 80),
		cards:         components.NewCardRenderer(theme),
		input:         input,
		sessionEvents: make(chan auth.Event, 16),
	}

	// Session transitions arrive in their own goroutines; buffer them into
	// a channel the program drains through a wait command.
	deps.Session.Subscribe(func(evt auth.Event) {
		select {
		case m.sessionEvents <- evt:
		default:
		}
	})

	// A refreshed pair must reach the live websocket, otherwise it keeps
	// re-dialing with a bearer the backend already rejected.
	deps.Session.OnTokenRotation(func(pair model.TokenPair) {
		m.chanMu.Lock()
		ch := m.channel
		m.chanMu.Unlock()
		if ch != nil {
			ch.UpdateToken(pair.AccessToken)
		}
	})

	if deps.Session.State() == auth.StateAuthenticated {
		m.view = viewChat
		m.statusBar.SetUser(deps.Session.User())
	}

	return m
}

// Init starts the event pumps and, for a restored session, opens the chat.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitSessionCmd(), textinput.Blink}
	if m.view == viewChat {
		cmds = append(cmds, m.enterChat()...)
	}
	return tea.Batch(cmds...)
}

// enterChat creates the realtime channel for the current token and kicks
// off everything the chat view needs.
func (m *Model) enterChat() []tea.Cmd {
	ch := realtime.NewChannel(realtime.Options{
		URL:            m.cfg.Backend.WSURL,
		Token:          m.client.Tokens().AccessToken,
		ConversationID: m.cfg.Chat.ConversationID,
		SendRate:       m.cfg.Chat.SendRatePerSec,
		BackoffBase:    m.cfg.ReconnectBase(),
		BackoffMax:     m.cfg.ReconnectMax(),
		MaxAttempts:    m.cfg.Chat.ReconnectMaxAttempts,
		Logger:         m.logger,
	})
	m.chanMu.Lock()
	m.channel = ch
	m.chanMu.Unlock()

	return []tea.Cmd{
		m.openChannelCmd(),
		m.waitChannelCmd(),
		m.verifyProfileCmd(),
		m.loadHistoryCmd(),
		m.refreshDashboardCmd(),
	}
}

// leaveChat tears the chat view down after a logout, voluntary or forced.
func (m *Model) leaveChat() {
	m.chanMu.Lock()
	ch := m.channel
	m.channel = nil
	m.chanMu.Unlock()
	if ch != nil {
		ch.Close()
	}
	m.hr.Reset()
	m.messages = nil
	m.snapshot = hr.Snapshot{}
	m.showDashboard = false
	m.spinner.Stop()
	m.toast = ""
	m.input.SetValue("")
	m.focus = focusInput
	m.actions.Blur()
	m.statusBar.SetUser(nil)
	m.statusBar.SetConnectionState(realtime.StateClosed)
	m.login.Reset()
	m.view = viewLogin
}

// appendMessage adds a message to the transcript and scrolls to it.
func (m *Model) appendMessage(msg *model.Message) {
	m.messages = append(m.messages, msg)
	if msg.Role == model.RoleBot && msg.HasActions() {
		m.actions.SetActions(msg.Actions)
	}
	m.refreshViewport()
}

// refreshViewport re-renders the transcript into the viewport.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	var body string
	for _, msg := range m.messages {
		body += m.renderer.Render(msg) + "\n"
	}
	if m.showDashboard {
		body += "\n" + m.cards.Dashboard(m.snapshot) + "\n"
	}
	m.viewport.SetContent(body)
	m.viewport.GotoBottom()
}

// resize propagates the terminal size to every component.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.theme.SetSize(width, height)
	m.header.SetWidth(width)
	m.statusBar.SetWidth(width)
	m.actions.SetWidth(width - 4)
	m.renderer.SetWidth(width)
	m.login.SetWidth(width)
	m.input.Width = width - 6

	vpHeight := height - m.chromeHeight()
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.refreshViewport()
}

// chromeHeight is the vertical space taken by everything but the
// transcript: header, action row, input, status bar and their spacing.
func (m *Model) chromeHeight() int {
	return 8
}
