package monitor

import (
	"github.com/sirupsen/logrus"

	"github.com/luki/twatch/internal/capture"
	"github.com/luki/twatch/internal/sensor"
)

// LogObserver reports tick events as structured log lines. Readings are
// logged at debug level; status transitions at info.
func LogObserver(log *logrus.Entry, opts Options) capture.Observer {
	armed := false
	return func(ev capture.Event) {
		entry := log.WithField("tick", ev.Tick)
		if ev.State == capture.Terminated {
			if ev.Err != nil {
				entry.WithError(ev.Err).Warnf("capture stopped: %s", ev.Reason)
				return
			}
			entry.WithField("cpu", ev.CPU).Infof("capture finished: %s", ev.Reason)
			return
		}

		for _, r := range ev.Readings {
			if r.Class == sensor.Unknown && !opts.ShowUnknown {
				continue
			}
			entry.WithFields(logrus.Fields{
				"class":     r.Class.String(),
				"component": sensor.FriendlyName(r.Chip),
				"label":     r.Label,
				"temp":      r.Temp,
			}).Debug("reading")
		}

		switch p := ev.Policy.(type) {
		case capture.TemperatureTrigger:
			if ev.Armed != armed {
				armed = ev.Armed
				if armed {
					entry.WithField("cpu", ev.CPU).Infof("trigger active: %d°C >= %d°C", ev.CPU, p.Lower)
				} else {
					entry.WithField("cpu", ev.CPU).Info("below target")
				}
			}
		case capture.CaptureLimit:
			entry.WithField("cpu", ev.CPU).Debugf("capture %d of %d", ev.Tick, p.Target)
		}
	}
}
