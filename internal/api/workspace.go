// ABOUTME: Workspace endpoints: directory listing and slash command discovery.
// ABOUTME: Backs the directory picker and command autocomplete in the client.

package api

import (
	"context"
	"fmt"
	"net/url"
)

// ListDirectoryOptions control a directory listing request.
type ListDirectoryOptions struct {
	Path             string
	Recursive        bool
	RespectGitignore bool
}

// ListDirectory lists filesystem entries visible to the backend under the
// given path.
func (c *Client) ListDirectory(ctx context.Context, opts ListDirectoryOptions) ([]DirEntry, error) {
	query := url.Values{}
	query.Set("path", opts.Path)
	if opts.Recursive {
		query.Set("recursive", "true")
	}
	if opts.RespectGitignore {
		query.Set("respect_gitignore", "true")
	}

	var out struct {
		Entries []DirEntry `json:"entries"`
	}
	if err := c.get(ctx, "/api/filesystem/list", query, &out); err != nil {
		return nil, fmt.Errorf("list directory %s: %w", opts.Path, err)
	}
	return out.Entries, nil
}

// Commands fetches the slash commands available in a working directory.
func (c *Client) Commands(ctx context.Context, workingDir string) ([]Command, error) {
	query := url.Values{}
	if workingDir != "" {
		query.Set("working_directory", workingDir)
	}

	var out struct {
		Commands []Command `json:"commands"`
	}
	if err := c.get(ctx, "/api/commands", query, &out); err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}
	return out.Commands, nil
}
