package notification

import "context"

// Switch reports whether a notifier may send right now.
type Switch interface {
	Enabled() bool
}

// Gated forwards alerts to Next only while the switch is on. A suppressed
// alert is not an error.
type Gated struct {
	Next   Notifier
	Switch Switch

	OnSent       func(Alert, error)
	OnSuppressed func(Alert)
}

func NewGated(next Notifier, sw Switch) *Gated {
	return &Gated{Next: next, Switch: sw}
}

func (g *Gated) Send(ctx context.Context, alert Alert) error {
	if g.Switch != nil && !g.Switch.Enabled() {
		if g.OnSuppressed != nil {
			g.OnSuppressed(alert)
		}
		return nil
	}
	err := g.Next.Send(ctx, alert)
	if g.OnSent != nil {
		g.OnSent(alert, err)
	}
	return err
}
