// Package console is the terminal front end of the station. It drives the
// station core the way the desktop UI does: log in, show the actions the
// user's permissions enable and, for administrators, manage users.
//
// Commands (logged out):
//
//	login            authenticate
//	help             show available commands
//	exit | quit      leave the program
//
// Commands (logged in):
//
//	actions                  list enabled actions
//	passwd [user]            change a password (own by default)
//	users                    list users with their permissions
//	adduser <user>           create a user with no permissions
//	deluser <user>           delete a user after confirmation
//	grant <user> <flags>     set permissions, e.g. "scan-in,scan-out" or "none"
//	enable|disable <user>    allow or block logins
//	versions                 list applied schema versions
//	logout
//	exit | quit
//
// Typing an action name (scan-in, settings, ...) reports whether it is
// enabled for the current user.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/chiplogic/internal/common"
	"github.com/dmitrijs2005/chiplogic/internal/models"
	"github.com/dmitrijs2005/chiplogic/internal/permissions"
	"github.com/dmitrijs2005/chiplogic/internal/prompt"
)

// Station is the surface of the station core the console needs. The real
// *app.App satisfies it.
type Station interface {
	Login(ctx context.Context, userName, password string) (models.PermissionSet, error)
	Logout(ctx context.Context)
	UserName() string
	EnabledActions() []permissions.Action

	CreateUser(ctx context.Context, userName, password string) error
	DeleteUser(ctx context.Context, userName string) error
	ChangePassword(ctx context.Context, userName, newPassword string) error
	SetPermissions(ctx context.Context, userName string, p models.PermissionSet) error
	SetActive(ctx context.Context, userName string, active bool) error
	ListUsers(ctx context.Context) ([]string, error)
	Permissions(ctx context.Context, userName string) (models.PermissionSet, error)
	SchemaHistory(ctx context.Context) ([]models.SchemaVersion, error)
}

// readPassword is a test seam for prompt.Password.
var readPassword = prompt.Password

type Console struct {
	station Station
	reader  *bufio.Reader
	out     io.Writer
}

func New(s Station, in io.Reader, out io.Writer) *Console {
	return &Console{station: s, reader: bufio.NewReader(in), out: out}
}

func (c *Console) println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

func (c *Console) printf(format string, a ...any) {
	fmt.Fprintf(c.out, format, a...)
}

func (c *Console) status() string {
	if u := c.station.UserName(); u != "" {
		return "(" + u + ")"
	}
	return ""
}

// Run reads commands until EOF, "exit" or ctx is cancelled. Command errors
// are printed and do not stop the loop.
func (c *Console) Run(ctx context.Context) {
	c.println("ChipLogic Station (type 'help' for commands)")

	for ctx.Err() == nil {
		c.printf("station %s> ", c.status())
		line, err := c.reader.ReadString('\n')
		if err != nil && line == "" {
			c.println()
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			c.println("Bye!")
			return
		}
		if err := c.dispatch(ctx, cmd, args); err != nil {
			c.printf("Error: %v\n", err)
		}
	}
}

func (c *Console) dispatch(ctx context.Context, cmd string, args []string) error {
	loggedIn := c.station.UserName() != ""

	if cmd == "help" {
		c.help(loggedIn)
		return nil
	}
	if !loggedIn {
		if cmd == "login" {
			return c.login(ctx)
		}
		return fmt.Errorf("unknown command %q (log in first)", cmd)
	}

	switch cmd {
	case "actions":
		c.actions()
	case "passwd":
		return c.passwd(ctx, args)
	case "users":
		return c.users(ctx)
	case "adduser":
		return c.addUser(ctx, args)
	case "deluser":
		return c.delUser(ctx, args)
	case "grant":
		return c.grant(ctx, args)
	case "enable":
		return c.withUser(args, func(u string) error { return c.station.SetActive(ctx, u, true) }, "enabled")
	case "disable":
		return c.withUser(args, func(u string) error { return c.station.SetActive(ctx, u, false) }, "disabled")
	case "versions":
		return c.versions(ctx)
	case "logout":
		c.station.Logout(ctx)
		c.println("Logged out.")
	default:
		return c.action(permissions.Action(cmd))
	}
	return nil
}

func (c *Console) help(loggedIn bool) {
	if !loggedIn {
		c.println("Available commands: login, exit")
		return
	}
	cmds := []string{"actions", "passwd"}
	if c.allowed(permissions.ManageUsers) {
		cmds = append(cmds, "users", "adduser", "deluser", "grant", "enable", "disable")
	}
	if c.allowed(permissions.Settings) {
		cmds = append(cmds, "versions")
	}
	cmds = append(cmds, "logout", "exit")
	c.println("Available commands: " + strings.Join(cmds, ", "))
}

func (c *Console) allowed(a permissions.Action) bool {
	for _, e := range c.station.EnabledActions() {
		if e == a {
			return true
		}
	}
	return false
}

func (c *Console) login(ctx context.Context) error {
	user, err := prompt.Text(c.reader, c.out, "Username")
	if err != nil {
		return err
	}
	pw, err := readPassword(c.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	if _, err := c.station.Login(ctx, user, string(pw)); err != nil {
		if errors.Is(err, common.ErrAuthenticationFailed) {
			return errors.New("invalid username or password")
		}
		return err
	}

	c.printf("Welcome, %s.\n", user)
	c.actions()
	return nil
}

func (c *Console) actions() {
	names := make([]string, 0, len(permissions.AllActions()))
	for _, a := range c.station.EnabledActions() {
		names = append(names, string(a))
	}
	if len(names) == 0 {
		c.println("No actions are enabled for this user.")
		return
	}
	c.println("Enabled actions: " + strings.Join(names, ", "))
}

func (c *Console) action(a permissions.Action) error {
	if !a.Valid() {
		return fmt.Errorf("unknown command %q", a)
	}
	if !c.allowed(a) {
		return fmt.Errorf("%w: %s", common.ErrPermissionDenied, a)
	}
	c.printf("%s: enabled\n", a)
	return nil
}

// newPassword asks twice and fails on a mismatch.
func (c *Console) newPassword() (string, error) {
	pw, err := readPassword(c.out, "New password")
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)

	again, err := readPassword(c.out, "Repeat password")
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(again)

	if string(pw) != string(again) {
		return "", fmt.Errorf("%w: passwords do not match", common.ErrValidation)
	}
	return string(pw), nil
}

func (c *Console) passwd(ctx context.Context, args []string) error {
	user := c.station.UserName()
	if len(args) > 0 {
		user = args[0]
	}
	pw, err := c.newPassword()
	if err != nil {
		return err
	}
	if err := c.station.ChangePassword(ctx, user, pw); err != nil {
		return err
	}
	c.printf("Password of %s changed.\n", user)
	return nil
}

func (c *Console) users(ctx context.Context) error {
	names, err := c.station.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		p, err := c.station.Permissions(ctx, n)
		if err != nil {
			return err
		}
		c.printf("  %-20s %s\n", n, permissions.FormatFlags(p))
	}
	return nil
}

func (c *Console) addUser(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: adduser <user>")
	}
	pw, err := c.newPassword()
	if err != nil {
		return err
	}
	if err := c.station.CreateUser(ctx, args[0], pw); err != nil {
		return err
	}
	c.printf("User %s created with no permissions; use grant to change that.\n", args[0])
	return nil
}

func (c *Console) delUser(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("expected exactly one username")
	}
	ok, err := prompt.Confirm(c.reader, c.out, "Delete user "+args[0]+"?")
	if err != nil {
		return err
	}
	if !ok {
		c.println("Cancelled.")
		return nil
	}
	return c.withUser(args, func(u string) error { return c.station.DeleteUser(ctx, u) }, "deleted")
}

func (c *Console) grant(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: grant <user> <flags>")
	}
	p, err := permissions.ParseFlags(strings.Join(args[1:], ","))
	if err != nil {
		return err
	}
	if err := c.station.SetPermissions(ctx, args[0], p); err != nil {
		return err
	}
	c.printf("Permissions of %s set to %s.\n", args[0], permissions.FormatFlags(p))
	return nil
}

func (c *Console) versions(ctx context.Context) error {
	all, err := c.station.SchemaHistory(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		c.println("No schema versions recorded.")
		return nil
	}
	for _, v := range all {
		c.printf("  %3d  %-12s %s\n", v.Seq, v.Version, v.AppliedAt.Local().Format(time.DateTime))
	}
	return nil
}

func (c *Console) withUser(args []string, fn func(string) error, done string) error {
	if len(args) != 1 {
		return errors.New("expected exactly one username")
	}
	if err := fn(args[0]); err != nil {
		return err
	}
	c.printf("User %s %s.\n", args[0], done)
	return nil
}
