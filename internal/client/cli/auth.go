package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/storefront/internal/client/services"
	"github.com/dmitrijs2005/storefront/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

const minCredentialLength = 3

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrLoginFailed  = errors.New("login failed")
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrCatalog      = errors.New("catalog unavailable")
)

// validateCredentials applies the form rules of the login prompt and returns
// one message per offending field.
func validateCredentials(username, password string) []string {
	var msgs []string
	check := func(field, value string) {
		value = strings.TrimSpace(value)
		switch {
		case value == "":
			msgs = append(msgs, field+" is required")
		case len([]rune(value)) < minCredentialLength:
			msgs = append(msgs, fmt.Sprintf("%s must be at least %d characters", field, minCredentialLength))
		}
	}
	check("Username", username)
	check("Password", password)
	return msgs
}

// Login prompts for a username and password and opens a session.
//
// The password buffer read from the terminal is zeroed before returning.
// The string handed to the session is an immutable copy and is not wiped,
// so the wipe is best-effort. A rejected login prints the server's message
// and returns ErrLoginFailed.
func (a *App) Login(ctx context.Context) error {
	if a.isLoggedIn() {
		fmt.Fprintln(a.out, "Already logged in. Use 'logout' first.")
		return nil
	}

	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	pass := string(password)

	if msgs := validateCredentials(userName, pass); len(msgs) > 0 {
		for _, m := range msgs {
			fmt.Fprintln(a.out, m)
		}
		return ErrInvalidInput
	}

	a.session.ClearError()
	if !a.session.Login(ctx, userName, pass) {
		msg := services.DefaultAuthErrorMessage
		if st := a.session.State(); st.Error != nil {
			msg = *st.Error
		}
		fmt.Fprintf(a.out, "Login unsuccessful: %s\n", msg)
		a.session.ClearError()
		return ErrLoginFailed
	}

	st := a.session.State()
	fmt.Fprintf(a.out, "Welcome, %s!\n", st.User.FullName())
	return nil
}

// Logout ends the session. It is safe to call when not logged in.
func (a *App) Logout(ctx context.Context) error {
	a.loggingOut.Store(true)
	a.session.Logout(ctx)
	a.loggingOut.Store(false)

	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

// WhoAmI prints the locally known session without contacting the server.
func (a *App) WhoAmI(ctx context.Context) error {
	st := a.session.State()
	if !st.IsAuthenticated {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}

	u := st.User
	fmt.Fprintf(a.out, "%s (%s)\n", u.FullName(), u.Username)
	if u.Email != "" {
		fmt.Fprintf(a.out, "Email: %s\n", u.Email)
	}
	if exp, ok := services.TokenExpiry(st.Token); ok {
		fmt.Fprintf(a.out, "Token expires: %s\n", exp.Local().Format(time.RFC1123))
	}
	return nil
}

// Me asks the server who the stored token belongs to.
func (a *App) Me(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Not logged in.")
		return ErrNotLoggedIn
	}

	u, err := a.session.FetchCurrentUser(ctx)
	if err != nil {
		a.log.Debug(ctx, "current user lookup failed", "error", err)
		fmt.Fprintln(a.out, "Could not load the current user.")
		return err
	}
	fmt.Fprintf(a.out, "%s (%s) <%s>\n", u.FullName(), u.Username, u.Email)
	return nil
}

// Refresh renews the token pair with the stored refresh token.
func (a *App) Refresh(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Not logged in.")
		return ErrNotLoggedIn
	}

	if err := a.session.RefreshSession(ctx); err != nil {
		a.log.Debug(ctx, "token refresh failed", "error", err)
		fmt.Fprintln(a.out, "Could not refresh the session.")
		return err
	}
	fmt.Fprintln(a.out, "Session refreshed.")
	return nil
}
