// Package alerts raises operator-visible alerts when preservation of an
// object keeps failing.
package alerts

import (
	"context"

	"github.com/dmitrijs2005/preservd/internal/logging"
)

// Alert is one operator notification.
type Alert struct {
	Title  string
	Body   string
	Labels []string
}

type Alerter interface {
	Raise(ctx context.Context, a Alert) error
}

// LogAlerter writes alerts to the log. It is used when no ticketing system
// is configured.
type LogAlerter struct {
	logger logging.Logger
}

func NewLogAlerter(l logging.Logger) *LogAlerter {
	return &LogAlerter{logger: l.With("module", "alerts")}
}

func (a *LogAlerter) Raise(ctx context.Context, al Alert) error {
	a.logger.Error(ctx, "operator alert", "title", al.Title, "body", al.Body, "labels", al.Labels)
	return nil
}
