package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dyluth/shop/internal/printer"
	"github.com/dyluth/shop/internal/session"
	"github.com/dyluth/shop/pkg/storefront"
	"github.com/spf13/cobra"
)

var (
	loginUsername      string
	loginPasswordStdin bool

	registerUsername      string
	registerEmail         string
	registerFirstName     string
	registerLastName      string
	registerPasswordStdin bool

	whoamiCached bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to your account",
	Long: `Log in with your username and password.

Your guest cart is merged into your account cart by the server.
The password is read from stdin; use --password-stdin in scripts:

  echo "$PASSWORD" | shop login -u ana --password-stdin`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show who is logged in",
	Long: `Show who is logged in, as the server sees it.

With --cached, show the locally saved login without contacting the server.
The saved login is only a hint; the server decides.`,
	Args: cobra.NoArgs,
	RunE: runWhoami,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username (prompted if omitted)")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "Read the password from stdin without prompting")

	registerCmd.Flags().StringVarP(&registerUsername, "username", "u", "", "Username (prompted if omitted)")
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "Email address (prompted if omitted)")
	registerCmd.Flags().StringVar(&registerFirstName, "first-name", "", "First name")
	registerCmd.Flags().StringVar(&registerLastName, "last-name", "", "Last name")
	registerCmd.Flags().BoolVar(&registerPasswordStdin, "password-stdin", false, "Read the password from stdin without prompting")

	whoamiCmd.Flags().BoolVar(&whoamiCached, "cached", false, "Show the saved login without contacting the server")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}

// prompter reads answers line by line from the command's stdin.
type prompter struct {
	in    *bufio.Reader
	out   io.Writer
	quiet bool
}

func newPrompter(cmd *cobra.Command, quiet bool) *prompter {
	return &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: printer.Stdout(), quiet: quiet}
}

func (p *prompter) ask(label, current string) (string, error) {
	if current != "" {
		return current, nil
	}
	if !p.quiet {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	entry, err := a.gate.Entry(ctx)
	if err != nil {
		return explain("check your session", err)
	}
	if entry == session.EntryRedirecting {
		st := a.gate.Peek()
		printer.Info("Already logged in as %s\n", st.User.Username)
		return nil
	}

	p := newPrompter(cmd, loginPasswordStdin)
	username, err := p.ask("Username", strings.TrimSpace(loginUsername))
	if err != nil {
		return err
	}
	password, err := p.ask("Password", "")
	if err != nil {
		return err
	}

	a.bootstrap(cmd)
	profile, err := a.gate.Login(ctx, storefront.LoginRequest{Username: strings.TrimSpace(username), Password: password})
	if err != nil {
		return explain("log in", err)
	}
	printer.Success("Logged in as %s\n", profile.DisplayName())
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	entry, err := a.gate.Entry(ctx)
	if err != nil {
		return explain("check your session", err)
	}
	if entry == session.EntryRedirecting {
		return printer.Error("already logged in", fmt.Sprintf("You are logged in as %s.", a.gate.Peek().User.Username), []string{"Log out first:\n  shop logout"})
	}

	p := newPrompter(cmd, registerPasswordStdin)
	req := storefront.RegisterRequest{FirstName: registerFirstName, LastName: registerLastName}
	if req.Username, err = p.ask("Username", strings.TrimSpace(registerUsername)); err != nil {
		return err
	}
	if req.Email, err = p.ask("Email", strings.TrimSpace(registerEmail)); err != nil {
		return err
	}
	if req.Password, err = p.ask("Password", ""); err != nil {
		return err
	}
	if registerPasswordStdin {
		req.Password2 = req.Password
	} else if req.Password2, err = p.ask("Repeat password", ""); err != nil {
		return err
	}

	a.bootstrap(cmd)
	profile, err := a.gate.Register(ctx, req)
	if err != nil {
		return explain("register", err)
	}
	printer.Success("Welcome, %s! You are logged in.\n", profile.DisplayName())
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	a.bootstrap(cmd)
	if err := a.gate.Logout(cmd.Context()); err != nil {
		return explain("log out", err)
	}
	printer.Success("Logged out\n")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	if whoamiCached {
		hint, ok, err := a.gate.CachedHint(ctx)
		if err != nil {
			return explain("read the saved login", err)
		}
		if !ok {
			printer.Info("No saved login\n")
			return nil
		}
		printer.Info("%s (saved login, not verified)\n", hint.User.Username)
		return nil
	}

	st, err := a.gate.Status(ctx)
	if err != nil {
		return explain("check your session", err)
	}
	if !st.Authenticated() {
		printer.Info("Not logged in (browsing as guest)\n")
		return nil
	}
	printer.Info("%s\n", describeUser(*st.User))
	return nil
}

func describeUser(p storefront.Profile) string {
	name := p.DisplayName()
	if name == p.Username {
		if p.Email != "" {
			return fmt.Sprintf("%s <%s>", p.Username, p.Email)
		}
		return p.Username
	}
	if p.Email != "" {
		return fmt.Sprintf("%s (%s) <%s>", name, p.Username, p.Email)
	}
	return fmt.Sprintf("%s (%s)", name, p.Username)
}
