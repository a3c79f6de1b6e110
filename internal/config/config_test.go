package config

import (
	"testing"
	"time"
)

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("TG_BOT_TOKEN", "")
	t.Setenv("CHANNEL_ID", "-1001234567890")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without TG_BOT_TOKEN")
	}
}

func TestLoadDefaultsAndParsing(t *testing.T) {
	t.Setenv("TG_BOT_TOKEN", "123:abc")
	t.Setenv("CHANNEL_ID", "-1001234567890")
	t.Setenv("OWNER_ID", "42")
	t.Setenv("ADMIN_IDS", "7, 9,")
	t.Setenv("FSUB_LINK_EXPIRY", "600")
	t.Setenv("PROTECT_CONTENT", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ChannelID != -1001234567890 {
		t.Fatalf("ChannelID = %d", cfg.ChannelID)
	}
	if cfg.FsubLinkExpiry != 10*time.Minute {
		t.Fatalf("FsubLinkExpiry = %v, want bare seconds parsed", cfg.FsubLinkExpiry)
	}
	if !cfg.ProtectContent {
		t.Fatalf("ProtectContent not parsed")
	}
	if cfg.CopyDelay != defaultCopyDelay {
		t.Fatalf("CopyDelay = %v", cfg.CopyDelay)
	}
	if !cfg.IsAdmin(42) || !cfg.IsAdmin(7) || !cfg.IsAdmin(9) {
		t.Fatalf("admin list incomplete: %v", cfg.AdminIDs)
	}
	if cfg.IsAdmin(8) {
		t.Fatalf("unexpected admin 8")
	}
}
