package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultSideChannelWait = 5 * time.Second
	minSideChannelWait     = 500 * time.Millisecond
)

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirectNavigator navigates by answering the current request with a redirect.
type redirectNavigator struct {
	w http.ResponseWriter
	r *http.Request
}

func (n redirectNavigator) Navigate(_ context.Context, url string) error {
	redirectSuccess(n.w, n.r, url)
	return nil
}

// sideChannelNavigator renders a page that loads the side-channel URL in a hidden frame and
// then continues to the navigation target. Without a side-channel URL it redirects.
type sideChannelNavigator struct {
	w       http.ResponseWriter
	r       *http.Request
	appName string

	mu      sync.Mutex
	sideURL string
	wait    time.Duration
}

// sideChannelPage is the data rendered by logout.html.
type sideChannelPage struct {
	AppName        string
	SideChannelURL string
	Next           string
	WaitMillis     int64
}

// Load only records the URL: the browser performs the load once the page is rendered,
// within the time left on ctx.
func (n *sideChannelNavigator) Load(ctx context.Context, url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sideURL = url
	n.wait = defaultSideChannelWait
	if deadline, ok := ctx.Deadline(); ok {
		n.wait = time.Until(deadline)
	}
	return nil
}

func (n *sideChannelNavigator) Navigate(_ context.Context, url string) error {
	n.mu.Lock()
	sideURL, wait := n.sideURL, n.wait
	n.mu.Unlock()

	if sideURL == "" {
		redirectSuccess(n.w, n.r, url)
		return nil
	}
	renderPage(n.w, http.StatusOK, "logout.html", sideChannelPage{
		AppName:        n.appName,
		SideChannelURL: sideURL,
		Next:           url,
		WaitMillis:     max(wait, minSideChannelWait).Milliseconds(),
	})
	return nil
}

// apiError is the JSON error body, shaped like an OAuth error response.
type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("Failed to encode JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, apiError{Error: code, ErrorDescription: description})
}
