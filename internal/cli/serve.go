package cli

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zzhiyuann/vibe-replay/internal/analyzer"
	"github.com/zzhiyuann/vibe-replay/internal/logger"
	"github.com/zzhiyuann/vibe-replay/internal/store"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a local web server to browse all replays",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to serve on")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	host := cfg.Server.Host
	if serveHost != "" {
		host = serveHost
	}
	port := cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "/index" {
			http.NotFound(w, r)
			return
		}
		serveIndex(w, s)
	})
	mux.HandleFunc("/session/", func(w http.ResponseWriter, r *http.Request) {
		partial := strings.Trim(strings.TrimPrefix(r.URL.Path, "/session/"), "/")
		serveSession(w, s, partial)
	})

	addr := fmt.Sprintf("%s:%d", host, port)
	fmt.Printf("Vibe Replay server running at http://%s\n", addr)
	fmt.Println("Press Ctrl+C to stop.")

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return server.ListenAndServe()
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html><head>
<title>Vibe Replay</title>
<style>
body { font-family: -apple-system, sans-serif; background: #0d1117; color: #e6edf3; padding: 2rem; }
h1 { color: #58a6ff; }
table { width: 100%; border-collapse: collapse; margin-top: 1rem; }
th, td { padding: 0.75rem; text-align: left; border-bottom: 1px solid #21262d; }
th { color: #8b949e; font-size: 0.85rem; text-transform: uppercase; }
tr:hover { background: #161b22; }
code { background: #21262d; padding: 0.2rem 0.4rem; border-radius: 4px; font-size: 0.85rem; }
a { color: #58a6ff; text-decoration: none; }
</style>
</head><body>
<h1>&#127916; Vibe Replay</h1>
<p style="color:#8b949e">Captured AI coding sessions</p>
<table>
<thead><tr><th>Session</th><th>Date</th><th>Duration</th><th>Events</th><th>Summary</th></tr></thead>
<tbody>
{{range .}}
<tr>
  <td><a href="/session/{{.SessionID}}"><code>{{.ShortID}}</code></a></td>
  <td>{{.Date}}</td>
  <td>{{.Duration}}</td>
  <td>{{.EventCount}}</td>
  <td>{{.Summary}}</td>
</tr>
{{end}}
</tbody>
</table>
</body></html>`))

type indexRow struct {
	SessionID  string
	ShortID    string
	Date       string
	Duration   string
	EventCount int
	Summary    string
}

func serveIndex(w http.ResponseWriter, s *store.Store) {
	sessions, err := s.ListSessions("", 100, 0)
	if err != nil {
		http.Error(w, "failed to list sessions", http.StatusInternalServerError)
		return
	}

	rows := make([]indexRow, 0, len(sessions))
	for _, meta := range sessions {
		shortID := meta.SessionID
		if len(shortID) > 16 {
			shortID = shortID[:16] + "..."
		}
		duration := "?"
		if meta.DurationSeconds > 0 {
			duration = analyzer.FormatDuration(meta.DurationSeconds)
		}
		summary := meta.Summary
		if summary == "" {
			summary = "-"
		}
		rows = append(rows, indexRow{
			SessionID:  meta.SessionID,
			ShortID:    shortID,
			Date:       meta.StartTime.Format("2006-01-02 15:04"),
			Duration:   duration,
			EventCount: meta.EventCount,
			Summary:    summary,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, rows); err != nil {
		logger.Debug().Err(err).Msg("Failed to render index")
	}
}

func serveSession(w http.ResponseWriter, s *store.Store, partial string) {
	sessionID, err := s.ResolveSessionID(partial)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	html, err := renderSessionHTML(s, sessionID)
	if err != nil {
		logger.Debug().Err(err).Str("session", sessionID).Msg("Failed to render session")
		http.Error(w, "failed to render session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}
