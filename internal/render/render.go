// Package render loads candidate pages for the email harvester, either through
// headless Chrome or with plain HTTP.
package render

import (
	"context"
	"errors"

	"github.com/law-makers/leadharvest/pkg/models"
)

// Renderer opens page-loading sessions. A session is held for the duration of
// one website harvest.
type Renderer interface {
	Name() string
	NewSession(ctx context.Context) (Session, error)
}

// Session loads pages one at a time. Load returns the page even for error
// statuses; callers decide what to do with StatusCode.
type Session interface {
	Load(ctx context.Context, url string) (*models.PageData, error)
	Close()
}

// ErrSessionUnavailable wraps the cause when a lazily opened session could not
// be started. Every later load of that session fails the same way.
var ErrSessionUnavailable = errors.New("rendering session unavailable")
