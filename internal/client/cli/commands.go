package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/flows"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/session"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errIncomplete = errors.New("operation did not complete")

// failureErr avoids returning a typed nil as error.
func failureErr(f *common.AuthFailure) error {
	if f == nil {
		return errIncomplete
	}
	return f
}

// Register prompts for a username, a password and its confirmation, then
// drives the registration flow.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Choose a username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	confirm, err := getPassword(a.out, "Repeat password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	f := flows.NewRegisterFlow(ctx, a.deps)
	defer f.Close()

	f.SetUsername(username)
	f.SetPassword(string(password))
	f.SetConfirm(string(confirm))

	st := f.State()
	for _, field := range []flows.Field{flows.FieldUsername, flows.FieldPassword, flows.FieldConfirm} {
		if msg := st.Errors[field]; msg != "" {
			fmt.Fprintf(a.out, "  %s: %s\n", field, msg)
		}
	}

	f.Submit()
	if err := f.Wait(); err != nil {
		return err
	}

	st = f.State()
	if st.Phase != flows.RegisterSuccess {
		return failureErr(st.Failure)
	}
	fmt.Fprintf(a.out, "Welcome, %s!\n", st.DisplayName)
	return nil
}

// Login first tries the stored session; only when it is absent or rejected
// does it prompt for credentials.
func (a *App) Login(ctx context.Context) error {
	f := flows.NewLoginFlow(ctx, a.deps)
	defer f.Close()

	f.Mount()
	if err := f.Wait(); err != nil {
		return err
	}
	if st := f.State(); st.Phase == flows.LoginSuccess {
		fmt.Fprintf(a.out, "Welcome back, %s!\n", st.DisplayName)
		return nil
	}

	username, err := getSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	f.SetUsername(username)
	f.SetPassword(string(password))
	f.Submit()
	if err := f.Wait(); err != nil {
		return err
	}

	st := f.State()
	if st.Phase != flows.LoginSuccess {
		return failureErr(st.Failure)
	}
	fmt.Fprintf(a.out, "Welcome, %s!\n", st.DisplayName)
	return nil
}

// Profile shows the profile of the stored session.
func (a *App) Profile(ctx context.Context) error {
	f := flows.NewProfileFlow(ctx, a.deps, flows.OnNavigateToLogin(func() {
		fmt.Fprintln(a.out, "Your session has ended, please log in again.")
	}))
	defer f.Close()

	f.Mount()
	if err := f.Wait(); err != nil {
		return err
	}

	st := f.State()
	if st.Phase != flows.ProfileLoaded {
		return failureErr(st.Failure)
	}
	fmt.Fprintf(a.out, "id:       %d\n", st.Profile.ID)
	fmt.Fprintf(a.out, "username: %s\n", st.Profile.Username)
	if !st.Profile.CreatedAt.IsZero() {
		fmt.Fprintf(a.out, "created:  %s\n", st.Profile.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

// Status prints the locally derived session status.
func (a *App) Status(ctx context.Context) error {
	as := a.refreshStatus(ctx)
	fmt.Fprintf(a.out, "status: %s\n", as.Status)
	if !as.ExpiresAt.IsZero() {
		fmt.Fprintf(a.out, "expires: %s (%d day(s) left)\n", as.ExpiresAt.Format(time.RFC3339), as.RemainingDays)
	}
	return nil
}

// Verify asks the server whether the stored token is still accepted.
func (a *App) Verify(ctx context.Context) error {
	if a.refreshStatus(ctx).Status == session.StatusNotLoggedIn {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}

	navigated := false
	f := flows.NewProfileFlow(ctx, a.deps, flows.OnNavigateToLogin(func() { navigated = true }))
	defer f.Close()

	f.VerifySession()
	if err := f.Wait(); err != nil {
		return err
	}

	st := f.State()
	switch {
	case navigated:
		fmt.Fprintln(a.out, "Session rejected by the server, please log in again.")
	case st.LastVerifyFailure != nil:
		fmt.Fprintf(a.out, "Could not verify the session (%s), keeping it.\n", st.LastVerifyFailure.Message)
	default:
		fmt.Fprintln(a.out, "Session is valid.")
	}
	return nil
}

// Logout ends the session. The local session is cleared even when the
// server cannot be reached.
func (a *App) Logout(ctx context.Context) error {
	f := flows.NewProfileFlow(ctx, a.deps, flows.OnLogoutComplete(func() {
		fmt.Fprintln(a.out, "Logged out.")
	}))
	defer f.Close()

	f.Logout()
	if err := f.Wait(); err != nil {
		return err
	}
	if st := f.State(); st.Phase == flows.ProfileFailed {
		return failureErr(st.Failure)
	}
	return nil
}
