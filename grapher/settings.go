package main

import (
	"errors"
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/golivegraph/pkg/device"
	"github.com/itohio/golivegraph/pkg/engine"
)

// showSettingsDialog displays the settings tabs. Submitted values are applied
// to the running engine and saved to the configuration file.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createDisplayTab(state),
		createChannelsTab(state),
	)

	d := dialog.NewCustom("Settings", "Close", tabs, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// portOptions lists the available ports as display names mapped to port
// names. current is appended when the system does not report it.
func portOptions(ports []device.Port, current string) ([]string, map[string]string, string) {
	options := []string{}
	names := make(map[string]string)
	selected := ""
	for _, port := range ports {
		display := port.Name
		if port.Description != "" && port.Description != port.Name {
			display = fmt.Sprintf("%s (%s)", port.Name, port.Description)
		}
		options = append(options, display)
		names[display] = port.Name
		if port.Name == current {
			selected = display
		}
	}
	if selected == "" && current != "" {
		options = append(options, current)
		names[current] = current
		selected = current
	}
	return options, names, selected
}

func createSerialTab(state *appState) *container.TabItem {
	serial, ok := state.transport.(*device.Serial)
	if !ok {
		return container.NewTabItem("Serial", widget.NewLabel("Using mocked device"))
	}

	ports, err := device.Ports()
	if err != nil {
		ports = nil
	}
	options, names, selected := portOptions(ports, state.cfg.Serial.Port)

	portSelect := widget.NewSelect(options, nil)
	if selected != "" {
		portSelect.SetSelected(selected)
	}
	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			if stream, _ := state.engine.State(); stream != engine.Disconnected {
				dialog.ShowError(errors.New("disconnect before changing the port"), state.window)
				return
			}
			baud, err := strconv.Atoi(baudEntry.Text)
			if err != nil || baud <= 0 {
				dialog.ShowError(fmt.Errorf("invalid baud rate %q", baudEntry.Text), state.window)
				return
			}
			port := names[portSelect.Selected]
			if port == "" {
				port = portSelect.Selected
			}

			serial.Port = port
			serial.BaudRate = baud
			state.cfg.Serial.Port = port
			state.cfg.Serial.BaudRate = baud
			state.save()
		},
	}
	return container.NewTabItem("Serial", form)
}

func createDisplayTab(state *appState) *container.TabItem {
	capacityEntry := widget.NewEntry()
	capacityEntry.SetText(strconv.Itoa(state.cfg.Buffer.Capacity))
	alphaEntry := widget.NewEntry()
	alphaEntry.SetText(strconv.FormatFloat(state.cfg.Smoothing.Alpha, 'g', -1, 64))
	minEntry := widget.NewEntry()
	minEntry.SetText(strconv.FormatFloat(state.cfg.Scale.Min, 'g', -1, 64))
	maxEntry := widget.NewEntry()
	maxEntry.SetText(strconv.FormatFloat(state.cfg.Scale.Max, 'g', -1, 64))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "History (samples)", Widget: capacityEntry, HintText: "Points kept per channel"},
			{Text: "Smoothing", Widget: alphaEntry, HintText: "(0, 1], 1 disables smoothing"},
			{Text: "Fixed Min", Widget: minEntry},
			{Text: "Fixed Max", Widget: maxEntry},
		},
		OnSubmit: func() {
			capacity, errCap := strconv.Atoi(capacityEntry.Text)
			alpha, errAlpha := strconv.ParseFloat(alphaEntry.Text, 64)
			lo, errMin := strconv.ParseFloat(minEntry.Text, 64)
			hi, errMax := strconv.ParseFloat(maxEntry.Text, 64)
			if err := errors.Join(errCap, errAlpha, errMin, errMax); err != nil {
				dialog.ShowError(fmt.Errorf("invalid value: %w", err), state.window)
				return
			}

			err := errors.Join(
				state.engine.SetCapacity(capacity),
				state.engine.SetAlpha(alpha),
				state.engine.SetFixedRange(lo, hi),
			)
			if err != nil {
				dialog.ShowError(err, state.window)
				return
			}
			state.cfg.Buffer.Capacity = capacity
			state.cfg.Smoothing.Alpha = alpha
			state.cfg.Scale.Min = lo
			state.cfg.Scale.Max = hi
			state.save()
		},
	}
	return container.NewTabItem("Display", form)
}

func createChannelsTab(state *appState) *container.TabItem {
	channels := state.engine.Channels()
	entries := make([]*widget.Entry, len(channels))
	form := &widget.Form{}
	for i, ch := range channels {
		entries[i] = widget.NewEntry()
		entries[i].SetText(ch.Name)
		form.Append(fmt.Sprintf("Channel %d", i+1), entries[i])
	}
	form.OnSubmit = func() {
		names := make([]string, len(entries))
		for i, entry := range entries {
			if err := state.engine.SetName(i, entry.Text); err != nil {
				dialog.ShowError(err, state.window)
				return
			}
			names[i] = entry.Text
		}
		state.cfg.Channels.Names = names
		state.save()
	}
	return container.NewTabItem("Channels", container.NewVScroll(form))
}

func (s *appState) save() {
	if err := s.cfg.Save(rootFlags.config); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), s.window)
	}
}
