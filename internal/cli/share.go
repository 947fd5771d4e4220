package cli

import (
	"fmt"
	"html/template"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zzhiyuann/vibe-replay/internal/render"
)

var (
	shareRepo   string
	shareNoOpen bool
)

var shareCmd = &cobra.Command{
	Use:   "share <session-id>",
	Short: "Share a replay publicly via GitHub Pages",
	Args:  cobra.ExactArgs(1),
	RunE:  runShare,
}

func init() {
	shareCmd.Flags().StringVar(&shareRepo, "repo", "", "Path to the pages repository")
	shareCmd.Flags().BoolVar(&shareNoOpen, "no-open", false, "Do not open the URL in a browser")
	rootCmd.AddCommand(shareCmd)
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func runShare(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	sessionID, err := s.ResolveSessionID(args[0])
	if err != nil {
		return err
	}

	repoPath := shareRepo
	if repoPath == "" {
		repoPath = cfg.Share.Repo
	}
	if repoPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		repoPath = filepath.Join(homeDir, "projects", "cortex")
	}
	if _, err := os.Stat(filepath.Join(repoPath, ".git")); err != nil {
		return fmt.Errorf("git repository not found at %s (use --repo to specify it)", repoPath)
	}

	username, repoName, err := parseGitHubRemote(repoPath)
	if err != nil {
		return err
	}

	r, err := loadOrAnalyze(s, sessionID)
	if err != nil {
		return err
	}
	events, err := s.Events(sessionID)
	if err != nil {
		return err
	}

	project := r.Metadata.Project
	if project == "" {
		project = "session"
	}
	safeName := strings.Trim(unsafeNameChars.ReplaceAllString(project, "-"), "-")
	safeName = strings.ToLower(safeName)
	dateStr := r.Metadata.StartTime.Format("20060102")
	shortID := sessionID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	filename := fmt.Sprintf("%s-%s-%s.html", safeName, dateStr, shortID)
	shareURL := fmt.Sprintf("https://%s.github.io/%s/replays/%s", username, repoName, filename)

	html, err := render.HTML(r, events, shareURL)
	if err != nil {
		return err
	}

	replaysDir := filepath.Join(repoPath, "replays")
	if err := os.MkdirAll(replaysDir, 0755); err != nil {
		return fmt.Errorf("failed to create replays directory: %w", err)
	}
	outputFile := filepath.Join(replaysDir, filename)
	if err := os.WriteFile(outputFile, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write replay: %w", err)
	}
	if err := updateReplaysIndex(replaysDir); err != nil {
		return err
	}

	commitMsg := fmt.Sprintf("Add replay: %s (%s)", project, dateStr)
	for _, gitArgs := range [][]string{
		{"add", "replays/"},
		{"commit", "-m", commitMsg},
		{"push"},
	} {
		if out, err := gitRun(repoPath, gitArgs...); err != nil {
			fmt.Printf("Git operation failed: %s\n", strings.TrimSpace(out))
			fmt.Printf("File saved at: %s\n", outputFile)
			return nil
		}
	}

	fmt.Println("Replay shared successfully!")
	fmt.Printf("  File: %s\n", outputFile)
	fmt.Printf("  URL:  %s\n", shareURL)
	fmt.Println("Note: GitHub Pages may take a minute to update.")

	if !shareNoOpen && cfg.Share.OpenBrowser {
		_ = openBrowser(shareURL)
	}
	return nil
}

func gitRun(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

var githubRemotePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^git@github\.com:([^/]+)/(.+?)(?:\.git)?$`),
	regexp.MustCompile(`^https?://github\.com/([^/]+)/(.+?)(?:\.git)?$`),
}

// parseGitHubRemote extracts the GitHub username and repo name from the
// origin remote URL.
func parseGitHubRemote(repoPath string) (string, string, error) {
	out, err := gitRun(repoPath, "remote", "get-url", "origin")
	if err != nil {
		return "", "", fmt.Errorf("failed to read origin remote: %w", err)
	}
	url := strings.TrimSpace(out)

	for _, pattern := range githubRemotePatterns {
		if m := pattern.FindStringSubmatch(url); m != nil {
			return m[1], m[2], nil
		}
	}
	return "", "", fmt.Errorf("could not parse GitHub remote URL: %s", url)
}

var replaysIndexTemplate = template.Must(template.New("replays-index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Vibe Replay - Shared Replays</title>
<style>
body { font-family: -apple-system, sans-serif; background: #0d1117; color: #e6edf3; padding: 2rem; max-width: 800px; margin: 0 auto; }
h1 { color: #58a6ff; }
p { color: #8b949e; }
ul { list-style: none; padding: 0; }
li { padding: 0.5rem 0; border-bottom: 1px solid #21262d; }
a { color: #58a6ff; text-decoration: none; font-size: 1.05rem; }
a:hover { text-decoration: underline; }
</style>
</head>
<body>
<h1>&#127916; Vibe Replay</h1>
<p>Shared AI coding session replays</p>
<ul>
{{range .}}<li><a href="{{.File}}">{{.Name}}</a></li>
{{end}}</ul>
<p style="margin-top:2rem;font-size:0.8rem;color:#6e7681;">
Generated by <a href="https://github.com/zzhiyuann/vibe-replay">Vibe Replay</a>
</p>
</body>
</html>`))

type replayLink struct {
	File string
	Name string
}

// updateReplaysIndex regenerates index.html listing every replay page
// in the directory.
func updateReplaysIndex(replaysDir string) error {
	entries, err := os.ReadDir(replaysDir)
	if err != nil {
		return fmt.Errorf("failed to read replays directory: %w", err)
	}

	var links []replayLink
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".html") || name == "index.html" {
			continue
		}
		display := strings.TrimSuffix(name, ".html")
		display = strings.NewReplacer("-", " ", "_", " ").Replace(display)
		links = append(links, replayLink{File: name, Name: display})
	}
	sort.Slice(links, func(i, j int) bool { return links[i].File < links[j].File })

	f, err := os.Create(filepath.Join(replaysDir, "index.html"))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := replaysIndexTemplate.Execute(f, links); err != nil {
		return fmt.Errorf("failed to render index: %w", err)
	}
	return nil
}
