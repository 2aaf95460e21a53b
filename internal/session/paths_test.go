package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDirDefault(t *testing.T) {
	t.Setenv(HomeEnv, "")
	home, _ := os.UserHomeDir()
	got := Dir("main")
	want := filepath.Join(home, ".smartqq", "sessions", "main")
	if got != want {
		t.Errorf("Dir(main) = %q, want %q", got, want)
	}
}

func TestHomeOverride(t *testing.T) {
	base := t.TempDir()
	t.Setenv(HomeEnv, base)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"socket", SocketPath("test"), filepath.Join(base, "sessions", "test", "daemon.sock")},
		{"lock", LockPath("test"), filepath.Join(base, "sessions", "test", "LOCK")},
		{"db", AppDBPath("test"), filepath.Join(base, "sessions", "test", "smartqq.db")},
		{"qr", QRPath("test"), filepath.Join(base, "sessions", "test", "qrcode.png")},
		{"log", LogPath("test"), filepath.Join(base, "sessions", "test", "logs", "smartqqd.log")},
		{"config", ConfigPath(), filepath.Join(base, "config.toml")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s path = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestEnsureDir(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	if err := EnsureDir("test"); err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{Dir("test"), LogDir("test")} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("%s not created: %v", dir, err)
		}
		if !info.IsDir() || info.Mode().Perm() != 0700 {
			t.Errorf("%s mode = %v", dir, info.Mode())
		}
	}
	if !strings.HasSuffix(LogDir("test"), "logs") {
		t.Errorf("LogDir = %q", LogDir("test"))
	}
}
