package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dyluth/shop/internal/printer"
	"github.com/dyluth/shop/internal/testutil"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// result is what one CLI invocation wrote.
type result struct {
	stdout string
	stderr string
	err    error
}

// resetFlags puts every flag back to its default. Command flags are
// package globals, so state would otherwise leak between invocations.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

// run executes the shop CLI in-process with stdin as its input.
func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	restore := printer.SetOutput(&out, &errOut)
	defer restore()

	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	defer func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

// shopEnv points the CLI at backend with a private bolt state file.
func shopEnv(t *testing.T, backend *testutil.Backend) {
	t.Helper()
	color.NoColor = true
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("SHOP_API_URL", backend.URL())
	t.Setenv("SHOP_STATE_BACKEND", "bolt")
	t.Setenv("SHOP_STATE_PATH", filepath.Join(dir, "state.db"))
	t.Setenv("SHOP_LOG_LEVEL", "disabled")
	t.Setenv("SHOP_PROFILE", "")
}

// TestRootCommand_ShowsHelpWhenNoSubcommand tests that the root command
// shows help instead of silently succeeding when invoked without a subcommand
func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	res := run(t, "")

	assert.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Usage:", "Help should be displayed")
	assert.Contains(t, res.stdout, "shop", "Help should show command name")
}

// TestRootCommand_RejectsUnknownFlags tests that unknown flags
// passed to the root command cause an error instead of being silently ignored
func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	res := run(t, "", "--unknown-flag", "value")

	require.Error(t, res.err, "Unknown flag should cause an error")
	assert.Contains(t, res.err.Error(), "unknown flag")
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	want := []string{"init", "products", "product", "categories", "cart", "login", "register", "logout", "whoami", "profile", "checkout", "orders"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestSetVersionInfo(t *testing.T) {
	prev := rootCmd.Version
	defer func() { rootCmd.Version = prev }()

	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	assert.Equal(t, "1.2.3 (commit: abc123, built: 2026-01-01)", rootCmd.Version)
}

func TestInvalidConfigurationIsExplained(t *testing.T) {
	backend := testutil.NewBackend(t)
	shopEnv(t, backend)
	t.Setenv("SHOP_STATE_BACKEND", "etcd")

	res := run(t, "", "products")
	require.Error(t, res.err)
	assert.Equal(t, "invalid configuration", res.err.Error())
	assert.Contains(t, res.stderr, "invalid state.backend: etcd")
}

func TestInvalidOutputFormat(t *testing.T) {
	backend := testutil.NewBackend(t)
	shopEnv(t, backend)

	res := run(t, "", "products", "-o", "xml")
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, "Valid formats")
	assert.Zero(t, backend.Calls("GET", "/api/productos/"), "nothing is fetched for a bad flag")
}


func TestInitCommand(t *testing.T) {
	color.NoColor = true
	t.Chdir(t.TempDir())

	res := run(t, "", "init")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "✓ shop.yml")

	res = run(t, "", "init")
	require.Error(t, res.err)
	assert.Contains(t, res.stderr, "shop init --force")

	res = run(t, "", "init", "--force")
	require.NoError(t, res.err, res.stderr)
}
