// ABOUTME: Filesystem listing and slash command discovery endpoints.
// ABOUTME: Backs the client's directory picker and command autocomplete.

package devserver

import (
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hcnode/cui/internal/api"
)

// commandsDir is the per-project directory scanned for custom commands.
const commandsDir = ".commands"

// builtinCommands are always advertised regardless of working directory.
var builtinCommands = []api.Command{
	{Name: "init", Description: "Analyze the project and draft contributor notes"},
	{Name: "compact", Description: "Compact the conversation history"},
	{Name: "clear", Description: "Clear the conversation and start fresh"},
}

// handleListDirectory handles GET /api/filesystem/list requests.
// Supports recursive listings and .gitignore filtering via query params.
func (s *Server) handleListDirectory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	root := r.URL.Query().Get("path")
	if root == "" {
		s.sendJSONError(w, http.StatusBadRequest, "path query param required")
		return
	}
	if !filepath.IsAbs(root) {
		s.sendJSONError(w, http.StatusBadRequest, "path must be absolute")
		return
	}
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		s.sendJSONError(w, http.StatusNotFound, "directory not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to stat path", "path", root, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !info.IsDir() {
		s.sendJSONError(w, http.StatusBadRequest, "path is not a directory")
		return
	}

	recursive := r.URL.Query().Get("recursive") == "true"
	respectGitignore := r.URL.Query().Get("respect_gitignore") == "true"

	var ignore []string
	if respectGitignore {
		ignore = loadGitignore(root)
	}

	var entries []api.DirEntry
	if recursive {
		entries, err = listRecursive(root, ignore)
	} else {
		entries, err = listFlat(root, ignore)
	}
	if err != nil {
		s.logger.Error("failed to list directory", "path", root, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// listFlat lists the immediate children of root.
func listFlat(root string, ignore []string) ([]api.DirEntry, error) {
	dirents, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	entries := make([]api.DirEntry, 0, len(dirents))
	for _, de := range dirents {
		if matchesIgnore(ignore, de.Name(), de.IsDir()) {
			continue
		}
		entry := api.DirEntry{
			Name:  de.Name(),
			Path:  filepath.Join(root, de.Name()),
			IsDir: de.IsDir(),
		}
		if !de.IsDir() {
			if info, err := de.Info(); err == nil {
				entry.Size = info.Size()
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// listRecursive walks the whole tree under root. The .git directory is
// always skipped; gitignore patterns prune matching subtrees.
func listRecursive(root string, ignore []string) ([]api.DirEntry, error) {
	var entries []api.DirEntry

	fsys := os.DirFS(root)
	err := doublestar.GlobWalk(fsys, "**", func(p string, d fs.DirEntry) error {
		if p == "." {
			return nil
		}
		if d.IsDir() && d.Name() == ".git" {
			return fs.SkipDir
		}
		if matchesIgnore(ignore, p, d.IsDir()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		entry := api.DirEntry{
			Name:  d.Name(),
			Path:  filepath.Join(root, filepath.FromSlash(p)),
			IsDir: d.IsDir(),
		}
		if !d.IsDir() {
			if info, err := d.Info(); err == nil {
				entry.Size = info.Size()
			}
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// loadGitignore reads ignore patterns from root's .gitignore. A missing
// file means no patterns. Negations are not supported; the listing only
// needs the common ignore shapes.
func loadGitignore(root string) []string {
	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}

	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		line = strings.TrimPrefix(line, "/")
		line = strings.TrimSuffix(line, "/")
		patterns = append(patterns, line)
	}
	return patterns
}

// matchesIgnore reports whether a slash-separated relative path matches any
// gitignore pattern. A pattern matches the full path, its basename, or any
// ancestor directory, mirroring how git applies unanchored patterns.
func matchesIgnore(patterns []string, relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, relPath); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, path.Base(relPath)); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern+"/**", relPath); err == nil && ok {
			return true
		}
	}
	return false
}

// handleListCommands handles GET /api/commands requests. Custom commands
// come from markdown files under <working_directory>/.commands.
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	commands := make([]api.Command, 0, len(builtinCommands))
	commands = append(commands, builtinCommands...)

	if workingDir := r.URL.Query().Get("working_directory"); workingDir != "" {
		commands = append(commands, scanCommands(filepath.Join(workingDir, commandsDir))...)
	}

	s.sendJSON(w, http.StatusOK, map[string]interface{}{"commands": commands})
}

// scanCommands reads one command per markdown file in dir. The file name
// is the command name; the first heading or line is its description.
func scanCommands(dir string) []api.Command {
	paths, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil
	}

	var commands []api.Command
	for _, p := range paths {
		name := strings.TrimSuffix(filepath.Base(p), ".md")
		commands = append(commands, api.Command{
			Name:        name,
			Description: commandDescription(p),
		})
	}

	sort.Slice(commands, func(i, j int) bool { return commands[i].Name < commands[j].Name })
	return commands
}

// commandDescription extracts the first non-empty line of a command file,
// with any leading heading marker stripped.
func commandDescription(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return strings.TrimSpace(strings.TrimLeft(line, "#"))
	}
	return ""
}
