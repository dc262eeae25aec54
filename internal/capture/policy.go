package capture

import (
	"errors"
	"fmt"
)

// ErrInvalidPolicy is returned for a policy that can never terminate.
var ErrInvalidPolicy = errors.New("invalid termination policy")

// Policy decides when a capture run ends. It is either CaptureLimit or
// TemperatureTrigger.
type Policy interface {
	Validate() error
	String() string
	isPolicy()
}

// CaptureLimit stops once Target ticks have been recorded.
type CaptureLimit struct {
	Target int
}

func (CaptureLimit) isPolicy() {}

func (p CaptureLimit) Validate() error {
	if p.Target < 1 {
		return fmt.Errorf("%w: capture target must be at least 1, got %d", ErrInvalidPolicy, p.Target)
	}
	return nil
}

func (p CaptureLimit) String() string {
	return fmt.Sprintf("capture-limit(%d)", p.Target)
}

// Reached reports whether tick satisfies the limit.
func (p CaptureLimit) Reached(tick int) bool {
	return tick >= p.Target
}

// TemperatureTrigger stops on the first CPU reading strictly above Upper.
// Lower only arms the status display and never ends the run.
type TemperatureTrigger struct {
	Lower int
	Upper int
}

func (TemperatureTrigger) isPolicy() {}

func (p TemperatureTrigger) Validate() error {
	if p.Upper <= p.Lower {
		return fmt.Errorf("%w: upper bound %d°C must be above lower bound %d°C", ErrInvalidPolicy, p.Upper, p.Lower)
	}
	return nil
}

func (p TemperatureTrigger) String() string {
	return fmt.Sprintf("trigger(%d..%d°C)", p.Lower, p.Upper)
}

// Armed reports whether temp has reached the lower bound.
func (p TemperatureTrigger) Armed(temp int) bool {
	return temp >= p.Lower
}

// Exceeded reports whether temp is past the upper bound.
func (p TemperatureTrigger) Exceeded(temp int) bool {
	return temp > p.Upper
}
