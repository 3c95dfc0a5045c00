// Package server hosts the rendered tree over HTTP. The server is
// read-only (GET and HEAD only) and, when a reload hub is attached,
// injects a small script into served HTML pages so browsers refresh
// after a watch-triggered rebuild.
package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pageforge/pageforge/internal/logging"
)

// reloadPath is the websocket endpoint the injected script connects to.
const reloadPath = "/__pageforge/reload"

// Server serves a directory until its context is cancelled.
type Server struct {
	dir  string
	port int
	hub  *ReloadHub // nil disables live reload
	log  logging.Logger
}

// New returns a Server for dir on port. hub may be nil.
func New(dir string, port int, hub *ReloadHub, log logging.Logger) *Server {
	return &Server{dir: dir, port: port, hub: hub, log: log.WithComponent("serve")}
}

// ListenAndServe blocks until ctx is cancelled, then shuts down
// gracefully. Serving is foreground work: the caller parks here while
// the watch goroutine reacts to changes.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.Info("serving", "dir", s.dir, "port", s.port)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.log.Info("stopped serving")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()
	if s.hub != nil {
		mux.HandleFunc(reloadPath, s.hub.ServeWS)
	}
	mux.Handle("/", s.files())
	return mux
}

// files serves the directory read-only. With a reload hub attached, HTML
// responses get the reload script appended.
func (s *Server) files() http.Handler {
	fileServer := http.FileServer(http.Dir(s.dir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if s.hub == nil || !wantsHTML(r.URL.Path) {
			fileServer.ServeHTTP(w, r)
			return
		}

		// Buffer HTML responses so the reload script can be appended and
		// Content-Length stays correct.
		rec := &bufferingWriter{header: make(http.Header)}
		fileServer.ServeHTTP(rec, r)

		body := rec.body.Bytes()
		if rec.status == http.StatusOK && isHTML(rec.header.Get("Content-Type")) {
			body = injectReloadScript(body)
		}

		h := w.Header()
		for k, v := range rec.header {
			h[k] = v
		}
		h.Set("Content-Length", fmt.Sprint(len(body)))
		w.WriteHeader(rec.status)
		if r.Method != http.MethodHead {
			_, _ = w.Write(body)
		}
	})
}

func wantsHTML(urlPath string) bool {
	return strings.HasSuffix(urlPath, "/") ||
		strings.HasSuffix(urlPath, ".html") ||
		strings.HasSuffix(urlPath, ".htm")
}

func isHTML(contentType string) bool {
	return strings.HasPrefix(contentType, "text/html")
}

// injectReloadScript places the reload script before </body> when
// present, otherwise appends it.
func injectReloadScript(body []byte) []byte {
	script := []byte(reloadScript)
	if i := bytes.LastIndex(body, []byte("</body>")); i >= 0 {
		out := make([]byte, 0, len(body)+len(script))
		out = append(out, body[:i]...)
		out = append(out, script...)
		out = append(out, body[i:]...)
		return out
	}
	return append(body, script...)
}

const reloadScript = `<script>
(function () {
  var url = (location.protocol === "https:" ? "wss://" : "ws://") +
    location.host + "` + reloadPath + `";
  function connect() {
    var ws = new WebSocket(url);
    ws.onmessage = function () { location.reload(); };
    ws.onclose = function () { setTimeout(connect, 1000); };
  }
  connect();
})();
</script>`

type bufferingWriter struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func (b *bufferingWriter) Header() http.Header { return b.header }

func (b *bufferingWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferingWriter) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}
