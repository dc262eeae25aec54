// Package capture drives the poll, record, evaluate loop that fills a
// session log until its termination policy fires.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/luki/twatch/internal/sensor"
	"github.com/luki/twatch/internal/store"
)

// ErrSensorUnavailable is returned when the source cannot be read or the
// CPU reading the trigger needs is missing.
var ErrSensorUnavailable = errors.New("sensor unavailable")

// Reason says why a run terminated.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonCaptureLimit Reason = "capture limit reached"
	ReasonTrigger      Reason = "temperature limit exceeded"
	ReasonCanceled     Reason = "canceled"
	ReasonSensor       Reason = "sensor unavailable"
	ReasonIO           Reason = "write failed"
)

// State is the loop state carried by each event.
type State int

const (
	Running State = iota
	Terminated
)

// Event is emitted once per tick and once on termination. Presenters
// render it; the engine never writes to the terminal itself.
type Event struct {
	Tick     int
	Time     time.Time
	Elapsed  time.Duration
	Policy   Policy
	Readings []sensor.Reading
	CPU      int
	HasCPU   bool
	// Armed is set in trigger mode once the CPU reaches the lower bound.
	Armed  bool
	State  State
	Reason Reason
	Err    error
}

// Observer receives engine events on the engine's goroutine.
type Observer func(Event)

// Options configure a run.
type Options struct {
	Interval time.Duration
	Policy   Policy
	// RecordUnknown also logs readings whose device class is Unknown.
	RecordUnknown bool
	Observer      Observer
	// Now defaults to time.Now.
	Now func() time.Time
}

// Result summarizes a finished run.
type Result struct {
	SessionID int
	Path      string
	Ticks     int
	Reason    Reason
	ExitTemp  int
	Elapsed   time.Duration
}

// Engine runs one capture loop at a time. It is not safe for concurrent use.
type Engine struct {
	src   sensor.Source
	store *store.Store
	opts  Options
	log   *logrus.Entry
}

// New validates opts and returns an engine.
func New(src sensor.Source, st *store.Store, opts Options) (*Engine, error) {
	if src == nil || st == nil {
		return nil, errors.New("capture: source and store are required")
	}
	if opts.Policy == nil {
		return nil, fmt.Errorf("%w: no policy", ErrInvalidPolicy)
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, err
	}
	if opts.Interval < 0 {
		return nil, fmt.Errorf("capture: negative poll interval %v", opts.Interval)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		src:   src,
		store: st,
		opts:  opts,
		log:   logrus.WithField("policy", opts.Policy.String()),
	}, nil
}

type run struct {
	*Engine
	sess  *store.Session
	log   *logrus.Entry
	start time.Time
	tick  int
}

// Run creates a session and polls until the policy fires, ctx is
// canceled, or a fatal error occurs. The session is finalized exactly
// once on every path after it has been created.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	sess, err := e.store.Create(e.opts.Interval)
	if err != nil {
		return Result{}, err
	}
	r := &run{Engine: e, sess: sess, start: e.opts.Now()}
	r.log = e.log.WithField("session", sess.ID)
	r.log.WithField("interval", e.opts.Interval).Info("capture started")

	for {
		if err := ctx.Err(); err != nil {
			return r.abort(ReasonCanceled, err)
		}
		r.tick++

		readings, err := e.src.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return r.abort(ReasonCanceled, ctx.Err())
			}
			return r.abort(ReasonSensor, fmt.Errorf("%w: tick %d: %w", ErrSensorUnavailable, r.tick, err))
		}

		cpu, hasCPU := sensor.FirstOf(readings, sensor.CPU)
		ev := Event{
			Tick:     r.tick,
			Time:     e.opts.Now(),
			Policy:   e.opts.Policy,
			Readings: readings,
			CPU:      cpu.Temp,
			HasCPU:   hasCPU,
		}
		ev.Elapsed = ev.Time.Sub(r.start)

		var done Reason
		switch p := e.opts.Policy.(type) {
		case TemperatureTrigger:
			if !hasCPU {
				return r.abort(ReasonSensor, fmt.Errorf("%w: no CPU reading on tick %d", ErrSensorUnavailable, r.tick))
			}
			ev.Armed = p.Armed(cpu.Temp)
			if p.Exceeded(cpu.Temp) {
				done = ReasonTrigger
			}
		case CaptureLimit:
			if p.Reached(r.tick) {
				done = ReasonCaptureLimit
			}
		}

		// The tick that trips the trigger is kept only as the Exit trailer
		// so the data series stays within the bound.
		if done != ReasonTrigger {
			if err := r.record(readings); err != nil {
				return r.abort(ReasonIO, err)
			}
		}
		e.emit(ev)

		if done != ReasonNone {
			return r.finish(done, cpu.Temp)
		}

		if err := sleep(ctx, e.opts.Interval); err != nil {
			return r.abort(ReasonCanceled, err)
		}
	}
}

func (r *run) record(readings []sensor.Reading) error {
	for _, rd := range readings {
		if rd.Class == sensor.Unknown && !r.opts.RecordUnknown {
			continue
		}
		if err := r.sess.Append(store.RecordOf(rd)); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) result(reason Reason, exit int) Result {
	return Result{
		SessionID: r.sess.ID,
		Path:      r.sess.Path,
		Ticks:     r.tick,
		Reason:    reason,
		ExitTemp:  exit,
		Elapsed:   r.opts.Now().Sub(r.start),
	}
}

func (r *run) finish(reason Reason, exit int) (Result, error) {
	res := r.result(reason, exit)
	err := r.sess.Finalize(store.Trailer{
		Elapsed: res.Elapsed,
		Exit:    &store.Record{Class: sensor.CPU, Temp: exit},
	})
	r.log.WithFields(logrus.Fields{"ticks": res.Ticks, "exit": exit}).Info(string(reason))
	r.emit(Event{Tick: r.tick, Time: r.opts.Now(), Elapsed: res.Elapsed, Policy: r.opts.Policy,
		CPU: exit, HasCPU: true, State: Terminated, Reason: reason, Err: err})
	return res, err
}

// abort finalizes without an Exit record. Whatever was flushed before
// remains valid.
func (r *run) abort(reason Reason, cause error) (Result, error) {
	res := r.result(reason, 0)
	ferr := r.sess.Finalize(store.Trailer{
		Elapsed: res.Elapsed,
		Notes:   []string{fmt.Sprintf("Aborted: %s", reason)},
	})
	err := errors.Join(cause, ferr)
	r.log.WithField("ticks", res.Ticks).WithError(err).Warn("capture aborted")
	r.emit(Event{Tick: r.tick, Time: r.opts.Now(), Elapsed: res.Elapsed, Policy: r.opts.Policy,
		State: Terminated, Reason: reason, Err: err})
	return res, err
}

func (e *Engine) emit(ev Event) {
	if e.opts.Observer != nil {
		e.opts.Observer(ev)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
