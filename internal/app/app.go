// Package app is the demo driver: it feeds a running visualization with
// spectrum frames from a synthetic or live source at a fixed rate and maps
// keys to controls.
package app

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/eiannone/keyboard"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/guidoenr/ravelizer/internal/params"
	"github.com/guidoenr/ravelizer/internal/spectrum"
)

// DefaultAlarmLevel is the alarm factor the alarm key toggles on.
const DefaultAlarmLevel float32 = 0.8

// Source produces the spectrum frame for a point in time.
type Source interface {
	Next(elapsed time.Duration) spectrum.Frame
}

// Visualizer is the part of the control surface the driver uses.
type Visualizer interface {
	IsActive() bool
	SetParameters(alarm float32, frame spectrum.Frame)
	Stop()
}

// Config configures the driver.
type Config struct {
	// Rate is how many frames per second are pushed.
	Rate       float32
	AlarmLevel float32
	// Keyboard enables key controls when stdin is a terminal.
	Keyboard bool
	Log      zerolog.Logger
}

type inputEvent int

const (
	inputEventToggleAlarm inputEvent = iota
	inputEventQuit
)

// App pushes parameters into a visualizer until it stops.
type App struct {
	cfg         Config
	vis         Visualizer
	source      Source
	log         zerolog.Logger
	alarm       bool
	inputEvents chan inputEvent
}

// New constructs a driver for vis reading from source.
func New(cfg Config, vis Visualizer, source Source) *App {
	if cfg.Rate <= 0 {
		cfg.Rate = 30
	}
	if cfg.AlarmLevel <= 0 {
		cfg.AlarmLevel = DefaultAlarmLevel
	}
	return &App{
		cfg:    cfg,
		vis:    vis,
		source: source,
		log:    cfg.Log.With().Str("component", "driver").Logger(),
	}
}

// Run pushes frames until the visualizer goes inactive, the quit key is
// pressed or ctx is cancelled. Quitting and cancellation stop the
// visualizer and wait for it to go inactive.
func (a *App) Run(ctx context.Context) error {
	period := time.Duration(float64(time.Second) / float64(a.cfg.Rate))
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	inputCtx, cancelInput := context.WithCancel(ctx)
	defer cancelInput()
	if a.cfg.Keyboard && term.IsTerminal(int(os.Stdin.Fd())) {
		a.startInputListener(inputCtx)
	}

	start := time.Now()
	a.push(0)
	for {
		select {
		case <-ctx.Done():
			a.stopAndWait(period)
			return ctx.Err()
		case evt, ok := <-a.inputEvents:
			if !ok {
				a.inputEvents = nil
				continue
			}
			a.handle(evt)
			if evt == inputEventQuit {
				a.stopAndWait(period)
				return nil
			}
		case <-ticker.C:
			if !a.vis.IsActive() {
				a.log.Info().Msg("visualization no longer active")
				return nil
			}
			a.push(time.Since(start))
		}
	}
}

// AlarmEnabled reports whether the alarm override is on.
func (a *App) AlarmEnabled() bool {
	return a.alarm
}

func (a *App) handle(evt inputEvent) {
	switch evt {
	case inputEventToggleAlarm:
		a.alarm = !a.alarm
		a.log.Info().Bool("alarm", a.alarm).Msg("alarm toggled")
	case inputEventQuit:
		a.log.Info().Msg("quit requested")
	}
}

func (a *App) push(elapsed time.Duration) {
	alarm := params.NoAlarm
	if a.alarm {
		alarm = a.cfg.AlarmLevel
	}
	a.vis.SetParameters(alarm, a.source.Next(elapsed))
}

func (a *App) stopAndWait(period time.Duration) {
	a.vis.Stop()
	poll := time.NewTicker(period)
	defer poll.Stop()
	deadline := time.After(5 * time.Second)
	for a.vis.IsActive() {
		select {
		case <-poll.C:
		case <-deadline:
			a.log.Warn().Msg("visualization did not stop in time")
			return
		}
	}
}

func (a *App) startInputListener(ctx context.Context) {
	if err := keyboard.Open(); err != nil {
		a.log.Warn().Err(err).Msg("keyboard input disabled")
		a.inputEvents = nil
		return
	}

	events := make(chan inputEvent, 16)
	a.inputEvents = events

	closeOnce := &sync.Once{}
	go func() {
		<-ctx.Done()
		closeOnce.Do(func() {
			_ = keyboard.Close()
		})
	}()

	go func() {
		defer close(events)
		defer closeOnce.Do(func() {
			_ = keyboard.Close()
		})
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				if !errors.Is(ctx.Err(), context.Canceled) {
					a.log.Debug().Err(err).Msg("keyboard read stopped")
				}
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			if evt, ok := keyEvent(char, key); ok {
				select {
				case events <- evt:
				default:
				}
				if evt == inputEventQuit {
					return
				}
			}
		}
	}()
}

func keyEvent(char rune, key keyboard.Key) (inputEvent, bool) {
	switch {
	case key == keyboard.KeyEsc || key == keyboard.KeyCtrlC:
		return inputEventQuit, true
	case char == 'q' || char == 'Q':
		return inputEventQuit, true
	case char == 'a' || char == 'A':
		return inputEventToggleAlarm, true
	}
	return 0, false
}
