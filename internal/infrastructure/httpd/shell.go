package httpd

import (
	_ "embed"
	"net/http"
)

// shellHTML is the embedded host shell: one page that creates the
// session, renders iframe panes from geometry updates and relays the
// frame connector protocol.
//
//go:embed shell/index.html
var shellHTML []byte

func (h *Handler) handleShell(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(shellHTML)
}
