package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("GM_TEST_TOKEN", "tok-from-env")

	path := writeConfig(t, `
token: ${GM_TEST_TOKEN}
api_url: ${GM_TEST_API:-https://api.groupme.com/v3}
archive:
  path: /tmp/archive.db
  groups: ["g1"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Token != "tok-from-env" {
		t.Errorf("Token = %q, want tok-from-env", cfg.Token)
	}
	if cfg.APIURL != "https://api.groupme.com/v3" {
		t.Errorf("APIURL = %q, want the default fallback", cfg.APIURL)
	}
}

func TestLoadUnresolvedVariable(t *testing.T) {
	path := writeConfig(t, "token: ${GM_TEST_DEFINITELY_UNSET}\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unresolved variable")
	}
	if !strings.Contains(err.Error(), "GM_TEST_DEFINITELY_UNSET") {
		t.Errorf("error does not name the variable: %v", err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "token: abc\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Archive.Schedule != "*/5 * * * *" {
		t.Errorf("Archive.Schedule = %q, want the default", cfg.Archive.Schedule)
	}
	if cfg.Callback.Bind != "127.0.0.1:8080" {
		t.Errorf("Callback.Bind = %q, want the default", cfg.Callback.Bind)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Token: "abc"}, false},
		{"missing token", Config{}, true},
		{"groups without path", Config{Token: "abc", Archive: ArchiveConfig{Groups: []string{"g1"}}}, true},
		{"groups with path", Config{Token: "abc", Archive: ArchiveConfig{Groups: []string{"g1"}, Path: "a.db"}}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
