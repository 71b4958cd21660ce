package dev

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ReloadPath is the WebSocket endpoint browsers connect to.
const ReloadPath = "/__matcha/reload"

const (
	writeWait    = 2 * time.Second
	maxReadBytes = 512
)

// ReloadMessageType is the "type" field of a reload message.
type ReloadMessageType string

// Messages understood by ReloadScript.
const (
	ReloadTypeFull  ReloadMessageType = "reload"
	ReloadTypeCSS   ReloadMessageType = "css"
	ReloadTypeError ReloadMessageType = "error"
	ReloadTypeClear ReloadMessageType = "clear"
)

// ReloadMessage is one JSON frame sent to browsers.
type ReloadMessage struct {
	Type  ReloadMessageType `json:"type"`
	Error string            `json:"error,omitempty"`
	File  string            `json:"file,omitempty"`
}

type reloadClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *reloadClient) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// ReloadServer fans reload messages out to connected browsers.
type ReloadServer struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]*reloadClient
}

// NewReloadServer creates a reload server. Any origin may connect.
func NewReloadServer(logger *slog.Logger) *ReloadServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReloadServer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxReadBytes,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]*reloadClient),
	}
}

// HandleWebSocket upgrades the request and holds the connection until the
// browser goes away. Browsers never send anything meaningful; reads only
// detect the close.
func (r *ReloadServer) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Debug("reload upgrade failed", "err", err)
		return
	}
	conn.SetReadLimit(maxReadBytes)

	r.mu.Lock()
	r.clients[conn] = &reloadClient{conn: conn}
	r.mu.Unlock()
	r.logger.Debug("reload client connected", "remote", req.RemoteAddr)

	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
	r.drop(conn)
}

func (r *ReloadServer) drop(conn *websocket.Conn) {
	r.mu.Lock()
	_, ok := r.clients[conn]
	delete(r.clients, conn)
	r.mu.Unlock()
	if ok {
		_ = conn.Close()
	}
}

// Notify sends msg to every connected browser. Clients that cannot be
// written to are dropped.
func (r *ReloadServer) Notify(msg ReloadMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("encode reload message", "err", err)
		return
	}

	r.mu.Lock()
	clients := make([]*reloadClient, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.Unlock()

	for _, c := range clients {
		if err := c.send(data); err != nil {
			r.logger.Debug("reload client dropped", "err", err)
			r.drop(c.conn)
		}
	}
}

// NotifyReload asks browsers for a full page reload.
func (r *ReloadServer) NotifyReload() {
	r.Notify(ReloadMessage{Type: ReloadTypeFull})
}

// NotifyCSS asks browsers to refetch their stylesheets.
func (r *ReloadServer) NotifyCSS(file string) {
	r.Notify(ReloadMessage{Type: ReloadTypeCSS, File: file})
}

// NotifyError shows errMsg in the browser overlay.
func (r *ReloadServer) NotifyError(errMsg string) {
	r.Notify(ReloadMessage{Type: ReloadTypeError, Error: errMsg})
}

// ClearError hides the overlay.
func (r *ReloadServer) ClearError() {
	r.Notify(ReloadMessage{Type: ReloadTypeClear})
}

// ClientCount returns the number of connected browsers.
func (r *ReloadServer) ClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Close disconnects every browser.
func (r *ReloadServer) Close() {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[*websocket.Conn]*reloadClient)
	r.mu.Unlock()
	for conn := range clients {
		_ = conn.Close()
	}
}

// InjectReloadScript adds the reload client before the last </body>, or at
// the end of documents without one.
func InjectReloadScript(html string) string {
	if i := strings.LastIndex(html, "</body>"); i >= 0 {
		return html[:i] + ReloadScript + html[i:]
	}
	return html + ReloadScript
}

// ReloadScript is the browser side of the reload protocol. It reconnects
// with backoff after the dev server restarts.
const ReloadScript = `<script>
(() => {
  const OVERLAY = "matcha-error-overlay";
  let backoff = 500;

  const hideError = () => document.getElementById(OVERLAY)?.remove();

  const showError = (text) => {
    hideError();
    const el = document.createElement("pre");
    el.id = OVERLAY;
    el.textContent = text;
    el.style.cssText = "position:fixed;inset:0;margin:0;padding:24px;z-index:2147483647;" +
      "background:rgba(20,20,20,.92);color:#f88;font:13px/1.5 monospace;white-space:pre-wrap;overflow:auto";
    document.body.appendChild(el);
  };

  const refreshStyles = () => {
    for (const link of document.querySelectorAll('link[rel="stylesheet"]')) {
      const url = new URL(link.href);
      url.searchParams.set("matcha", String(Date.now()));
      link.href = url.href;
    }
  };

  const handlers = {
    reload: () => location.reload(),
    css: refreshStyles,
    error: (msg) => showError(msg.error || "build error"),
    clear: hideError,
  };

  const connect = () => {
    const scheme = location.protocol === "https:" ? "wss://" : "ws://";
    const ws = new WebSocket(scheme + location.host + "` + ReloadPath + `");
    ws.onopen = () => { backoff = 500; };
    ws.onmessage = (ev) => {
      let msg;
      try { msg = JSON.parse(ev.data); } catch { return; }
      handlers[msg.type]?.(msg);
    };
    ws.onclose = () => {
      setTimeout(connect, backoff);
      backoff = Math.min(backoff * 2, 10000);
    };
  };

  connect();
})();
</script>`
