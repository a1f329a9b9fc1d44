package cmd

import (
	"strings"
	"testing"

	"github.com/sahayakbot/sahayak/internal/config"
)

func TestAuditWarnings(t *testing.T) {
	prod := &config.Config{
		Environment:        "production",
		PostgresSSLMode:    "disable",
		SupportedLanguages: []string{"en", "hi"},
	}
	warnings := auditWarnings(prod)
	if len(warnings) != 4 {
		t.Fatalf("warnings = %d: %v", len(warnings), warnings)
	}

	dev := &config.Config{
		Environment:        "development",
		PostgresSSLMode:    "disable",
		SupportedLanguages: []string{"en"},
	}
	if got := auditWarnings(dev); len(got) != 0 {
		t.Errorf("dev warnings = %v, want none", got)
	}
}

func TestVersionCommand(t *testing.T) {
	var out strings.Builder
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	if !strings.Contains(out.String(), "sahayak") {
		t.Errorf("output = %q", out.String())
	}
}
