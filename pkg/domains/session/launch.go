package session

import (
	"path/filepath"
	"strings"

	"github.com/wagate/pkg/automation"
	"github.com/wagate/pkg/entities"
)

// sandboxArgs are always passed to the automation engine.
var sandboxArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
}

// launchArgs derives engine arguments from a session config. The proxy flag
// is added only for a non-empty proxy server.
func launchArgs(cfg entities.SessionConfig) []string {
	args := append([]string(nil), sandboxArgs...)
	if server := strings.TrimSpace(cfg.Proxy.Server); server != "" {
		args = append(args, "--proxy-server="+server)
	}
	if ua := strings.TrimSpace(cfg.Device.UserAgent); ua != "" {
		args = append(args, "--user-agent="+ua)
	}
	return args
}

func launchProxy(cfg entities.SessionConfig) automation.Proxy {
	return automation.Proxy{
		Server:   strings.TrimSpace(cfg.Proxy.Server),
		Username: cfg.Proxy.Username,
		Password: cfg.Proxy.Password,
	}
}

func credentialDir(root, id string) string {
	return filepath.Join(root, "session-"+id)
}
