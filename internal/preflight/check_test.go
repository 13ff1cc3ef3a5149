package preflight

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder bool

func (p fakeEmbedder) Available(context.Context) bool { return bool(p) }

func TestCheckStatus_String(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{StatusPass, "PASS"},
		{StatusWarn, "WARN"},
		{StatusFail, "FAIL"},
		{CheckStatus(9), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestCheckResult_JSON(t *testing.T) {
	data, err := json.Marshal(CheckResult{Name: "disk_space", Status: StatusWarn})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"warn"`)
}

func TestCheckResult_IsCritical(t *testing.T) {
	tests := []struct {
		name   string
		result CheckResult
		want   bool
	}{
		{"required pass", CheckResult{Status: StatusPass, Required: true}, false},
		{"required fail", CheckResult{Status: StatusFail, Required: true}, true},
		{"optional fail", CheckResult{Status: StatusFail}, false},
		{"required warn", CheckResult{Status: StatusWarn, Required: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.IsCritical())
		})
	}
}

func TestChecker_SummaryStatus(t *testing.T) {
	checker := New()

	tests := []struct {
		name    string
		results []CheckResult
		want    string
	}{
		{"all pass", []CheckResult{{Status: StatusPass}, {Status: StatusPass}}, "ready"},
		{"warning", []CheckResult{{Status: StatusPass}, {Status: StatusWarn}}, "ready_with_warnings"},
		{"optional failure", []CheckResult{{Status: StatusFail}}, "ready_with_warnings"},
		{"critical failure", []CheckResult{{Status: StatusWarn}, {Status: StatusFail, Required: true}}, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checker.SummaryStatus(tt.results))
			assert.Equal(t, tt.want == "failed", checker.HasCriticalFailures(tt.results))
		})
	}
}

func TestChecker_CheckWritePermissions_CreatesDir(t *testing.T) {
	// Given: a data dir that does not exist yet
	dir := filepath.Join(t.TempDir(), "data")

	// When: checking it
	result := New().CheckWritePermissions(dir)

	// Then: it is created and writable, with no test file left behind
	assert.Equal(t, StatusPass, result.Status)
	assert.True(t, result.Required)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestChecker_CheckWritePermissions_ReadOnly(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root can write to read-only directories")
	}

	dir := filepath.Join(t.TempDir(), "readonly")
	require.NoError(t, os.Mkdir(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	result := New().CheckWritePermissions(dir)

	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Message, "permission denied")
}

func TestChecker_CheckEmbedder(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		want   CheckStatus
	}{
		{"ready", Target{Provider: "static", Embedder: fakeEmbedder(true)}, StatusPass},
		{"unreachable", Target{Provider: "ollama", Host: "http://localhost:11434", Embedder: fakeEmbedder(false)}, StatusWarn},
		{"not created", Target{Provider: "ollama"}, StatusWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New().CheckEmbedder(context.Background(), tt.target)
			assert.Equal(t, tt.want, result.Status)
			assert.False(t, result.Required)
		})
	}
}

func TestChecker_CheckKeywordIndex(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, StatusPass, New().CheckKeywordIndex(dir).Status)

	missing := New().CheckKeywordIndex(filepath.Join(dir, "keyword.bleve"))
	assert.Equal(t, StatusWarn, missing.Status)
	assert.Contains(t, missing.Details, "--rebuild-keywords")
}

func TestChecker_RunAll(t *testing.T) {
	// Given: a fresh data dir and a ready embedder
	dir := t.TempDir()
	target := Target{
		DataDir:          dir,
		KeywordIndexPath: dir,
		Provider:         "static",
		Embedder:         fakeEmbedder(true),
	}

	// When: running every check
	var buf bytes.Buffer
	checker := New(WithOutput(&buf))
	results := checker.RunAll(context.Background(), target)
	checker.PrintResults(results)

	// Then: each check reports and nothing is critical
	names := make(map[string]bool)
	for _, r := range results {
		names[r.Name] = true
	}
	for _, name := range []string{"data_dir", "disk_space", "file_descriptors", "embedder", "keyword_index"} {
		assert.True(t, names[name], "missing %s", name)
	}
	assert.False(t, checker.HasCriticalFailures(results))
	assert.Contains(t, buf.String(), "[PASS] data_dir")
	assert.Contains(t, buf.String(), "Status:")
}
