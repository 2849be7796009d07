package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/moodtunes/internal/identity"
	"github.com/urfave/cli/v3"
)

// AuthLogin signs in through the OAuth provider and remembers the user.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	st, err := r.openStores()
	if err != nil {
		return err
	}
	defer st.Close()

	gate, err := r.restoreGate(ctx, st)
	if err != nil {
		return err
	}

	if err := r.signIn(ctx, gate); err != nil {
		return err
	}

	return r.writePlain("✓ Signed in as %s\n", gate.Current().DisplayName())
}

// signIn runs the login flow and records the result on gate.
func (r *Runner) signIn(ctx context.Context, gate *identity.Gate) error {
	login, err := r.newLogin()
	if err != nil {
		return err
	}

	r.logger.Info("starting sign-in")
	user, err := login(ctx)
	if err != nil {
		return err
	}

	return gate.SignIn(ctx, user)
}

// AuthLogout forgets the signed-in user.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	st, err := r.openStores()
	if err != nil {
		return err
	}
	defer st.Close()

	gate, err := r.restoreGate(ctx, st)
	if err != nil {
		return err
	}

	if gate.Current() == nil {
		return r.writePlain("Not signed in\n")
	}

	name := gate.Current().DisplayName()
	if err := gate.SignOut(ctx); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return r.writePlain("✓ Signed out %s\n", name)
}

// AuthStatus reports the signed-in user.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	st, err := r.openStores()
	if err != nil {
		return err
	}
	defer st.Close()

	gate, err := r.restoreGate(ctx, st)
	if err != nil {
		return err
	}

	user := gate.Current()
	if cmd.Bool("json") {
		status := map[string]any{"signed_in": user != nil, "required": r.config.Identity.Required}
		if user != nil {
			status["email"] = user.Email()
			status["name"] = user.Name()
			status["id"] = user.ID()
		}
		return r.writeJSON(status, true)
	}

	if user == nil {
		r.writePlain("✗ Not signed in\n")
		if r.config.Identity.Required {
			r.writePlain("Run 'moodtunes auth login' to sign in\n")
		}
		return nil
	}

	r.writePlain("✓ Signed in\n")
	r.writePlain("Name: %s\n", user.Name())
	r.writePlain("Email: %s\n", user.Email())
	return nil
}
