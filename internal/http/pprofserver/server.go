// Package pprofserver serves the dispatch debug endpoints (pprof, /metrics,
// build info) on a separate port. Loopback callers are trusted, everyone else
// needs basic auth.
package pprofserver

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime/debug"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const realm = `Basic realm="dispatch-debug"`

// runtime profiles served through pprof.Handler.
var profiles = []string{"heap", "goroutine", "allocs", "block", "mutex", "threadcreate"}

// Config stores debug server settings.
type Config struct {
	Port int
	User string
	Pass string
}

func (c Config) hasCredentials() bool { return c.User != "" && c.Pass != "" }

// NewServer returns the debug server, or nil when Port is 0.
func NewServer(cfg Config, gatherer prometheus.Gatherer) *http.Server {
	if cfg.Port == 0 {
		return nil
	}
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           Handler(cfg, gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Handler mounts pprof, /debug/buildinfo and, when gatherer is set, /metrics.
func Handler(cfg Config, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
			ErrorHandling: promhttp.ContinueOnError,
		}))
	}

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	for _, p := range profiles {
		mux.Handle("/debug/pprof/"+p, pprof.Handler(p))
	}
	mux.HandleFunc("/debug/buildinfo", buildInfo)

	return authOrLocalOnly(mux, cfg)
}

type buildInfoResponse struct {
	GoVersion string            `json:"go_version"`
	Module    string            `json:"module"`
	Version   string            `json:"version"`
	Settings  map[string]string `json:"settings,omitempty"`
}

// buildInfo reports the module version and vcs stamp of the running binary.
func buildInfo(w http.ResponseWriter, _ *http.Request) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		http.Error(w, "build info unavailable", http.StatusNotFound)
		return
	}
	resp := buildInfoResponse{
		GoVersion: bi.GoVersion,
		Module:    bi.Main.Path,
		Version:   bi.Main.Version,
		Settings:  make(map[string]string),
	}
	for _, s := range bi.Settings {
		if strings.HasPrefix(s.Key, "vcs.") {
			resp.Settings[s.Key] = s.Value
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func authOrLocalOnly(next http.Handler, cfg Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isLoopback(r.RemoteAddr) || (cfg.hasCredentials() && validBasicAuth(r, cfg)) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("WWW-Authenticate", realm)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

func validBasicAuth(r *http.Request, cfg Config) bool {
	u, p, ok := r.BasicAuth()
	// сравниваю оба поля всегда
	userOK := secureEq(u, cfg.User)
	passOK := secureEq(p, cfg.Pass)
	return ok && userOK && passOK
}

func secureEq(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func isLoopback(remoteAddr string) bool {
	host := strings.TrimSpace(remoteAddr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
