package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aerox/internal/shared"
)

const (
	CallbackPath = "/callback"
	DonePath     = "/done"
)

// LoginFunc exchanges an authorization code and stores the resulting token.
type LoginFunc func(ctx context.Context, code string) error

// CallbackResult is the outcome of the authorization callback.
type CallbackResult struct {
	Err error
}

// CallbackHandler receives the authorization redirect, exchanges its code exactly once and then
// sends the browser to [DonePath] so the code leaves the address bar.
type CallbackHandler struct {
	login   LoginFunc
	state   string
	logger  *log.Logger
	results chan CallbackResult
	once    sync.Once

	mu  sync.Mutex
	hit bool
}

// NewCallbackHandler creates a handler expecting state on the callback.
func NewCallbackHandler(login LoginFunc, state string, logger *log.Logger) *CallbackHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &CallbackHandler{
		login:   login,
		state:   state,
		logger:  logger,
		results: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{CallbackPath, DonePath}
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case CallbackPath:
		h.callback(w, r)
	case DonePath:
		renderPage(w, http.StatusOK, successPage)
	default:
		http.NotFound(w, r)
	}
}

// callback handles the provider redirect. A request with a foreign state is turned away without
// using up the single slot, so the genuine redirect can still complete the login.
func (h *CallbackHandler) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("state") != h.state {
		h.reject(w, http.StatusBadRequest, shared.ErrInvalidState)
		return
	}

	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	if e := q.Get("error"); e != "" {
		h.fail(w, http.StatusBadRequest, fmt.Errorf("%w: %s", shared.ErrAuthFailed, e))
		return
	}

	code := q.Get("code")
	if code == "" {
		h.fail(w, http.StatusBadRequest, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument))
		return
	}

	if err := h.login(r.Context(), code); err != nil {
		h.fail(w, http.StatusBadGateway, err)
		return
	}

	h.logger.Info("authorization code exchanged")
	h.Send(CallbackResult{})
	http.Redirect(w, r, DonePath, http.StatusSeeOther)
}

func (h *CallbackHandler) fail(w http.ResponseWriter, status int, err error) {
	h.logger.Error("authorization callback failed", "error", err)
	h.Send(CallbackResult{Err: err})
	renderPage(w, status, failurePage)
}

// reject answers with the failure page but leaves the login waiting.
func (h *CallbackHandler) reject(w http.ResponseWriter, status int, err error) {
	h.logger.Warn("authorization callback rejected", "error", err)
	renderPage(w, status, failurePage)
}

// Send delivers the result. Only the first call has any effect.
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result receives exactly one result and is then closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.results
}

type page struct {
	Title   string
	Message string
	Color   string
}

var (
	successPage = page{"Authorization Successful", "You can close this window and return to the terminal.", "#1DB954"}
	failurePage = page{"Authentication Failed", "Could not complete Spotify login. Check the terminal for details.", "#E22134"}
)

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #121212; }
        .container { text-align: center; background: #181818; padding: 2rem; border-radius: 8px; }
        h1 { color: {{.Color}}; margin: 0 0 1rem 0; }
        p { color: #b3b3b3; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

func renderPage(w http.ResponseWriter, status int, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = pageTmpl.Execute(w, p)
}
