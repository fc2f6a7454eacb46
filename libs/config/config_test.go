package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIntAndDuration(t *testing.T) {
	t.Setenv("SLOT_GRANULARITY_MINUTES", "15")
	t.Setenv("LOCK_TIMEOUT", "750ms")

	n, err := Int("SLOT_GRANULARITY_MINUTES", 30)
	if err != nil || n != 15 {
		t.Fatalf("Int = %d, %v; want 15", n, err)
	}
	n, err = Int("MISSING_INT", 30)
	if err != nil || n != 30 {
		t.Fatalf("Int fallback = %d, %v; want 30", n, err)
	}
	d, err := Duration("LOCK_TIMEOUT", time.Second)
	if err != nil || d != 750*time.Millisecond {
		t.Fatalf("Duration = %s, %v", d, err)
	}

	t.Setenv("BAD_INT", "ten")
	if _, err := Int("BAD_INT", 1); err == nil {
		t.Fatal("expected error for malformed int")
	}
}

func TestPortRejectsOutOfRange(t *testing.T) {
	t.Setenv("PORT", "70000")
	if _, err := Port("PORT", "8083"); err == nil {
		t.Fatal("expected error for port out of range")
	}
}

func TestBoolAndList(t *testing.T) {
	t.Setenv("FLAG_ON", "yes")
	t.Setenv("FLAG_JUNK", "maybe")
	t.Setenv("ORIGINS", " http://a.test, ,http://b.test ")

	if !Bool("FLAG_ON", false) {
		t.Fatal("expected FLAG_ON true")
	}
	if !Bool("FLAG_JUNK", true) {
		t.Fatal("expected fallback for unparseable bool")
	}
	got := List("ORIGINS")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("unexpected list %v", got)
	}
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("DOTENV_ONLY=from-file\nDOTENV_SET=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("DOTENV_SET", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("DOTENV_ONLY") })

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := String("DOTENV_ONLY", ""); got != "from-file" {
		t.Fatalf("DOTENV_ONLY = %q", got)
	}
	if got := String("DOTENV_SET", ""); got != "from-env" {
		t.Fatalf("DOTENV_SET = %q, existing env must win", got)
	}
}
