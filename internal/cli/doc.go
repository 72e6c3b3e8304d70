// Package cli implements the cui command tree: the interactive chat
// client, the dev backend server, and the supporting one-shot commands
// for listing, exporting, token minting, and health checks.
package cli
