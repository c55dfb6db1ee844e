// Package cli provides the command-line interface for leadharvest.
package cli

import (
	"context"

	"github.com/law-makers/leadharvest/internal/app"
	"github.com/spf13/cobra"
)

// ctxKey is used for storing app context in cobra commands
type ctxKey string

const appKey ctxKey = "app"

// SetApp stores the Application in the command's context
func SetApp(cmd *cobra.Command, a *app.Application) {
	if cmd == nil {
		return
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appKey, a))
}

// GetAppFromCmd retrieves the Application stored by SetApp, or nil
func GetAppFromCmd(cmd *cobra.Command) *app.Application {
	if cmd == nil || cmd.Context() == nil {
		return nil
	}
	a, _ := cmd.Context().Value(appKey).(*app.Application)
	return a
}

// mustApp is used by RunE functions, which only run after PersistentPreRunE
// has created the application.
func mustApp(cmd *cobra.Command) *app.Application {
	a := GetAppFromCmd(cmd)
	if a == nil {
		panic("cli: application not initialized")
	}
	return a
}
