package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"conflate/internal/config"
	"conflate/internal/entity"
	"conflate/internal/testsupport"
)

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndatabase_path = %q\nlog_dir = %q\naudit_dir = %q\n\n[backup]\nenabled = false\n\n[logging]\nformat = \"json\"\nlevel = \"error\"\n",
		cfg.Paths.DatabasePath,
		cfg.Paths.LogDir,
		cfg.Paths.AuditDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func setupCLITestEnv(t *testing.T) (*config.Config, *entity.Store, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithBackupDisabled())
	store := testsupport.MustOpenStore(t, cfg)

	configPath := filepath.Join(filepath.Dir(cfg.Paths.DatabasePath), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return cfg, store, configPath
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestCLIRunMergesDuplicates(t *testing.T) {
	_, store, configPath := setupCLITestEnv(t)
	testsupport.SeedEntity(t, store, "Jane Doe", entity.TypePerson, 8)
	dup := testsupport.SeedEntity(t, store, "jane doe", entity.TypePerson, 2)

	out, err := runCLI(t, configPath, "run")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out, "Merged") || !strings.Contains(out, "Audit trail:") {
		t.Fatalf("unexpected run output:\n%s", out)
	}

	if n := testsupport.CountRows(t, store, "entities", "id = ?", dup); n != 0 {
		t.Fatal("duplicate entity survived CLI run")
	}
}

func TestCLIRunDryRunLeavesDatabaseUntouched(t *testing.T) {
	_, store, configPath := setupCLITestEnv(t)
	testsupport.SeedEntity(t, store, "Jane Doe", entity.TypePerson, 8)
	testsupport.SeedEntity(t, store, "jane doe", entity.TypePerson, 2)

	out, err := runCLI(t, configPath, "run", "--dry-run")
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if !strings.Contains(out, "dry run") {
		t.Fatalf("unexpected dry-run output:\n%s", out)
	}
	if n := testsupport.CountRows(t, store, "entities", ""); n != 2 {
		t.Fatalf("dry run changed entities, count=%d", n)
	}
}

func TestCLIRunRejectsUnknownType(t *testing.T) {
	_, _, configPath := setupCLITestEnv(t)
	if _, err := runCLI(t, configPath, "run", "--type", "starship"); err == nil {
		t.Fatal("expected error for unknown entity type")
	}
}

func TestCLICandidatesListsPlannedMerges(t *testing.T) {
	_, store, configPath := setupCLITestEnv(t)
	testsupport.SeedEntity(t, store, "Jane Doe", entity.TypePerson, 8)
	testsupport.SeedEntity(t, store, "jane doe", entity.TypePerson, 2)

	out, err := runCLI(t, configPath, "candidates")
	if err != nil {
		t.Fatalf("candidates failed: %v", err)
	}
	if !strings.Contains(out, "jane doe") || !strings.Contains(out, "1 merges planned") {
		t.Fatalf("unexpected candidates output:\n%s", out)
	}

	if n := testsupport.CountRows(t, store, "entities", ""); n != 2 {
		t.Fatal("candidates must not modify the database")
	}
}

func TestCLICandidatesEmpty(t *testing.T) {
	_, store, configPath := setupCLITestEnv(t)
	testsupport.SeedEntity(t, store, "Jane Doe", entity.TypePerson, 8)

	out, err := runCLI(t, configPath, "candidates")
	if err != nil {
		t.Fatalf("candidates failed: %v", err)
	}
	if !strings.Contains(out, "No duplicate candidates") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestCLIAuditShowsHistory(t *testing.T) {
	_, store, configPath := setupCLITestEnv(t)
	testsupport.SeedEntity(t, store, "Jane Doe", entity.TypePerson, 8)
	testsupport.SeedEntity(t, store, "jane doe", entity.TypePerson, 2)

	if _, err := runCLI(t, configPath, "run"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	out, err := runCLI(t, configPath, "audit")
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if !strings.Contains(out, "jane doe") || !strings.Contains(out, "Jane Doe") {
		t.Fatalf("unexpected audit output:\n%s", out)
	}
}

func TestCLIStats(t *testing.T) {
	_, store, configPath := setupCLITestEnv(t)
	testsupport.SeedEntity(t, store, "Jane Doe", entity.TypePerson, 8)
	testsupport.SeedEntity(t, store, "Alpha Corp", entity.TypeOrganization, 3)

	out, err := runCLI(t, configPath, "stats")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if !strings.Contains(out, "Total entities") || !strings.Contains(out, "2") {
		t.Fatalf("unexpected stats output:\n%s", out)
	}
}

func TestCLIConfigInit(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "config.toml")

	out, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected init output:\n%s", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected error for existing config without --overwrite")
	}
	if _, err := runCLI(t, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite failed: %v", err)
	}
}

func TestCLIConfigShow(t *testing.T) {
	cfg, _, configPath := setupCLITestEnv(t)

	out, err := runCLI(t, configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, cfg.Paths.DatabasePath) || !strings.Contains(out, "Fuzzy window") {
		t.Fatalf("unexpected config show output:\n%s", out)
	}
}

func TestCLIDBFlagOverridesConfig(t *testing.T) {
	cfg, _, configPath := setupCLITestEnv(t)

	altPath := filepath.Join(filepath.Dir(cfg.Paths.DatabasePath), "alt.db")
	alt, err := entity.Open(altPath)
	if err != nil {
		t.Fatalf("open alt store: %v", err)
	}
	testsupport.SeedEntity(t, alt, "Only In Alt", entity.TypePerson, 1)
	if err := alt.Close(); err != nil {
		t.Fatalf("close alt store: %v", err)
	}

	out, err := runCLI(t, configPath, "--db", altPath, "stats")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if !strings.Contains(out, "1") {
		t.Fatalf("expected alt database stats:\n%s", out)
	}
}
