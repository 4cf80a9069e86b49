package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/desertthunder/aerox/internal/server"
	"github.com/desertthunder/aerox/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the authorization code flow through a temporary local callback server.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	s, err := r.Session(ctx)
	if err != nil {
		return err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}
	authURL, err := s.AuthURL(ctx, state)
	if err != nil {
		return fmt.Errorf("failed to build authorization URL: %w", err)
	}

	handler := server.NewCallbackHandler(s.Login, state, shared.WithLogger(r.logger, "component", "callback"))
	addr := r.config.Server.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	httpServer := &http.Server{
		Handler:           server.NewCallbackRouter(handler, r.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting callback server", "addr", addr)
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	} else {
		r.writePlain("→ Opening browser for Spotify login...\n")
		if err := r.openBrowser(authURL); err != nil {
			r.logger.Warn("failed to open browser automatically", "error", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
		}
	}

	timeout := cmd.Duration("timeout")
	r.writePlain("→ Waiting for authorization (%v timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.CallbackResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	if result.Err != nil {
		r.writePlain("✗ Authentication Failed: Could not complete Spotify login\n")
		return fmt.Errorf("authorization failed: %w", result.Err)
	}

	user, err := s.Client.CurrentUser(ctx)
	if err != nil {
		r.logger.Warn("signed in but profile lookup failed", "error", err)
		r.writePlain("✓ Signed in\n")
		return nil
	}
	r.writePlain("✓ Signed in as %s\n", displayName(user.DisplayName, user.ID))
	return nil
}

// AuthLogout clears the token and its persisted copy.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	s, err := r.Session(ctx)
	if err != nil {
		return err
	}
	if err := s.Logout(ctx); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	r.writePlain("✓ Signed out\n")
	return nil
}

// AuthStatus reports the signed in user.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	s, err := r.Session(ctx)
	if err != nil {
		return err
	}

	type status struct {
		Authenticated bool   `json:"authenticated"`
		UserID        string     `json:"user_id,omitempty"`
		DisplayName   string     `json:"display_name,omitempty"`
		SignedInAt    *time.Time `json:"signed_in_at,omitempty"`
	}

	out := status{Authenticated: s.Authenticated()}
	if out.Authenticated {
		user, err := s.Client.CurrentUser(ctx)
		if err != nil {
			return err
		}
		out.UserID, out.DisplayName = user.ID, user.DisplayName
		if r.tokens != nil {
			if at, err := r.tokens.SavedAt(ctx); err == nil && !at.IsZero() {
				out.SignedInAt = &at
			}
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(out, cmd.Bool("pretty"))
	}
	if !out.Authenticated {
		r.writePlain("Not signed in. Run `aerox auth login`.\n")
		return nil
	}
	r.writePlain("✓ Signed in as %s\n", displayName(out.DisplayName, out.UserID))
	if out.SignedInAt != nil {
		r.writePlain("  since %s\n", out.SignedInAt.Local().Format(time.DateTime))
	}
	return nil
}

func displayName(name, id string) string {
	if name == "" {
		return id
	}
	return name
}
