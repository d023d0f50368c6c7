package browser

import (
	"testing"
	"time"
)

func TestNavTimeoutDefault(t *testing.T) {
	t.Parallel()

	s := &Session{}
	if got := s.navTimeout(); got != 45*time.Second {
		t.Fatalf("expected default nav timeout, got %v", got)
	}
	s.cfg.NavigationTimeout = time.Second
	if got := s.navTimeout(); got != time.Second {
		t.Fatalf("expected override to be used, got %v", got)
	}
}

func TestLocateChromePrefersConfiguredPath(t *testing.T) {
	t.Parallel()

	if got := locateChrome("/opt/chrome/chrome"); got != "/opt/chrome/chrome" {
		t.Fatalf("expected configured path to win, got %q", got)
	}
}

func TestAllocatorOptionsRespectConfig(t *testing.T) {
	t.Parallel()

	base := allocatorOptions(Config{})
	withExtras := allocatorOptions(Config{
		NoSandbox:    true,
		WindowWidth:  1280,
		WindowHeight: 720,
	})
	if len(withExtras) <= len(base) {
		t.Fatalf("expected extra options to be appended: base=%d extras=%d", len(base), len(withExtras))
	}
}
