package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/teammate/internal/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TEAMMATE_CONFIG", "")
	t.Setenv("TEAMMATE_LOG_LEVEL", "error")
	t.Setenv("TEAMMATE_DOCUMENTS_DATA_DIR", filepath.Join(home, "data"))
	t.Setenv("TEAMMATE_PRESENTER_SLIDE_PAUSE", "0s")
	for _, env := range []string{"TENANT_ID", "CLIENT_ID", "CLIENT_SECRET", "REDIS_URL", "OPENAI_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(env, "")
	}
	return home
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	demo, confirmReset, configPath, verbose = false, false, "", false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunDemo(t *testing.T) {
	isolate(t)

	out, err := execute(t, "run", "--demo")
	require.NoError(t, err, out)

	require.Contains(t, out, "Testing: Teammate, schedule a meeting at 3 PM\nResult: Scheduled 'Team Meeting' at")
	require.Contains(t, out, "Result: Presented slides from")
	require.Contains(t, out, "Testing: Teammate, ignore this\nResult: Command ignored as requested.")
	require.Contains(t, out, "Testing: Random text\nResult: Processed")
	require.Equal(t, len(demoScript), strings.Count(out, "Testing: "))
}

func TestRunRequiresCommand(t *testing.T) {
	isolate(t)
	_, err := execute(t, "run")
	require.Error(t, err)
}

func TestSamplesAndReset(t *testing.T) {
	home := isolate(t)

	out, err := execute(t, "samples")
	require.NoError(t, err)
	require.Contains(t, out, filepath.Join(home, "data", "sample.xlsx"))

	_, err = execute(t, "reset")
	require.ErrorContains(t, err, "--yes")
	out, err = execute(t, "reset", "--yes")
	require.NoError(t, err)
	require.Contains(t, out, "reset complete")
}

func TestCheckOffline(t *testing.T) {
	isolate(t)
	out, err := execute(t, "check")
	require.NoError(t, err, out)
	require.Contains(t, out, "graph      ok    Offline User")
	require.Contains(t, out, "reminders  ok    sqlite")
}

func TestResolveAPIKey(t *testing.T) {
	home := isolate(t)
	c := config.Config{LLM: config.LLMConfig{Provider: "openai", APIKey: "from-config"}, Secrets: config.SecretsConfig{Dir: home}}
	require.Equal(t, "from-config", resolveAPIKey(c))

	t.Setenv("OPENAI_API_KEY", "from-env")
	require.Equal(t, "from-env", resolveAPIKey(c))

	c.LLM = config.LLMConfig{Provider: "local", APIKey: "unused"}
	require.Equal(t, "unused", resolveAPIKey(c))
}
