package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/spf13/cobra"

	"github.com/itohio/golivegraph/pkg/config"
	"github.com/itohio/golivegraph/pkg/device"
	"github.com/itohio/golivegraph/pkg/engine"
	"github.com/itohio/golivegraph/pkg/metrics"
	"github.com/itohio/golivegraph/pkg/scope"
)

// appState holds the application state shared by the window callbacks.
type appState struct {
	cfg       *config.Config
	engine    *engine.Engine
	transport device.Transport
	scope     *scope.ScopeWidget
	window    fyne.Window
	ctx       context.Context

	connectBtn *widget.Button
	recordBtn  *widget.Button
	pauseBtn   *widget.Button
	stopBtn    *widget.Button
	autoCheck  *widget.Check
	splitCheck *widget.Check
	graphType  *widget.Select
}

func runGUI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	uploader, closeUploader, err := buildUploader(cfg)
	if err != nil {
		return err
	}
	defer closeUploader()

	m := metrics.New(nil)
	stopMetrics, err := serveMetrics(cfg.Metrics.Address, m)
	if err != nil {
		return err
	}
	defer stopMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application := app.NewWithID("com.itohio.golivegraph")
	window := application.NewWindow("Live Graph")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:       cfg,
		transport: buildTransport(cfg, rootFlags.mock),
		scope:     scope.New(),
		window:    window,
		ctx:       ctx,
	}
	state.engine = engine.New(cfg, engine.Options{
		Transport: state.transport,
		Uploader:  uploader,
		Metrics:   m,
		OnWarning: func(err error) {
			log.Printf("Warning: %v", err)
			fyne.Do(func() { dialog.ShowError(err, window) })
		},
		OnStateChange: func(engine.StreamState, engine.CaptureState) {
			fyne.Do(state.updateControls)
		},
	})
	defer state.engine.Close()

	window.SetContent(container.NewBorder(
		createToolbar(state),
		nil,
		nil,
		createChannelList(state),
		state.scope,
	))
	state.updateControls()

	state.engine.StartRender(ctx, state.scope)
	window.ShowAndRun()
	return nil
}

// createToolbar creates the stream, recording and display controls.
func createToolbar(state *appState) fyne.CanvasObject {
	state.connectBtn = widget.NewButtonWithIcon("Connect", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	state.recordBtn = widget.NewButtonWithIcon("Record", theme.MediaRecordIcon(), func() {
		state.report(state.engine.StartRecording())
	})
	state.pauseBtn = widget.NewButtonWithIcon("Pause", theme.MediaPauseIcon(), func() {
		handlePause(state)
	})
	state.stopBtn = widget.NewButtonWithIcon("Stop", theme.MediaStopIcon(), func() {
		handleStop(state)
	})
	clearBtn := widget.NewButtonWithIcon("Clear", theme.ContentClearIcon(), func() {
		state.engine.Clear()
	})

	state.autoCheck = widget.NewCheck("Autoscale", func(on bool) {
		state.engine.SetAutoScale(on)
	})
	state.autoCheck.SetChecked(state.engine.AutoScale())

	state.splitCheck = widget.NewCheck("Split", func(on bool) {
		split := state.engine.Split()
		split.Enabled = on
		state.report(state.engine.SetSplit(split))
	})
	state.splitCheck.SetChecked(state.engine.Split().Enabled)

	state.graphType = widget.NewSelect([]string{
		string(engine.GraphLine), string(engine.GraphDot), string(engine.GraphBar),
	}, func(selected string) {
		state.report(state.engine.SetGraphType(engine.GraphType(selected)))
	})
	state.graphType.SetSelected(state.cfg.Render.GraphType)

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(state.connectBtn, settingsBtn, widget.NewSeparator(), state.recordBtn, state.pauseBtn, state.stopBtn),
		container.NewHBox(clearBtn, state.autoCheck, state.splitCheck, state.graphType),
		nil,
	)
}

// createChannelList creates one visibility checkbox per channel.
func createChannelList(state *appState) fyne.CanvasObject {
	box := container.NewVBox(widget.NewLabelWithStyle("Channels", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}))
	for _, ch := range state.engine.Channels() {
		check := widget.NewCheck(ch.Name, func(visible bool) {
			state.report(state.engine.SetVisible(ch.Index, visible))
		})
		check.SetChecked(ch.Visible)
		box.Add(check)
	}
	return container.NewVScroll(box)
}

// handleConnect connects or disconnects depending on the stream state.
// Opening a port may block, so it runs off the UI thread.
func handleConnect(state *appState) {
	stream, _ := state.engine.State()
	state.connectBtn.Disable()
	go func() {
		var err error
		if stream == engine.Disconnected {
			err = state.engine.Connect(state.ctx)
			if err == nil {
				log.Printf("Connected to %v", state.transport)
			}
		} else {
			err = state.engine.Disconnect()
			log.Printf("Disconnected from %v", state.transport)
		}
		fyne.Do(func() {
			state.report(err)
			state.updateControls()
		})
	}()
}

func handlePause(state *appState) {
	_, capture := state.engine.State()
	if capture == engine.Paused {
		state.report(state.engine.ResumeRecording())
		return
	}
	state.report(state.engine.PauseRecording())
}

// handleStop finalizes the session and exports it off the UI thread.
func handleStop(state *appState) {
	state.stopBtn.Disable()
	go func() {
		ctx, cancel := context.WithTimeout(state.ctx, time.Minute)
		defer cancel()
		s, err := state.engine.StopRecording(ctx)
		fyne.Do(func() {
			state.updateControls()
			var exportErr *engine.ExportError
			switch {
			case errors.As(err, &exportErr):
				dialog.ShowError(fmt.Errorf("session %d samples kept in memory, export failed: %w", s.Len(), err), state.window)
			case err != nil:
				dialog.ShowError(err, state.window)
			case s != nil && s.Location() != "":
				dialog.ShowInformation("Session exported", s.Location(), state.window)
			}
		})
	}()
}

// updateControls enables the buttons valid in the current state. Must run on
// the UI thread.
func (s *appState) updateControls() {
	if s.connectBtn == nil {
		return
	}
	stream, capture := s.engine.State()

	s.connectBtn.Enable()
	switch stream {
	case engine.Connected:
		s.connectBtn.SetText("Disconnect")
		s.connectBtn.SetIcon(theme.LogoutIcon())
	case engine.Connecting:
		s.connectBtn.SetText("Connecting")
		s.connectBtn.Disable()
	default:
		s.connectBtn.SetText("Connect")
		s.connectBtn.SetIcon(theme.LoginIcon())
	}

	setEnabled(s.recordBtn, stream == engine.Connected && capture == engine.Idle)
	setEnabled(s.pauseBtn, capture != engine.Idle)
	setEnabled(s.stopBtn, capture != engine.Idle)
	if capture == engine.Paused {
		s.pauseBtn.SetText("Resume")
		s.pauseBtn.SetIcon(theme.MediaPlayIcon())
	} else {
		s.pauseBtn.SetText("Pause")
		s.pauseBtn.SetIcon(theme.MediaPauseIcon())
	}
}

// report shows err in a dialog. Must run on the UI thread.
func (s *appState) report(err error) {
	if err == nil {
		return
	}
	log.Printf("Error: %v", err)
	dialog.ShowError(err, s.window)
}

func setEnabled(w fyne.Disableable, enabled bool) {
	if enabled {
		w.Enable()
	} else {
		w.Disable()
	}
}
