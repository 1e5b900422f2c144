// Package conflict decides which of two versions of the same prompt wins.
package conflict

import "github.com/dmitrijs2005/promptkeeper/internal/client/models"

// Resolve returns the version with the strictly greater UpdatedAt. On a tie
// the local version wins. When one side is missing the other is returned.
// The whole record wins; fields are never merged.
func Resolve(local, remote *models.Prompt) *models.Prompt {
	switch {
	case local == nil:
		return remote
	case remote == nil:
		return local
	case remote.UpdatedAt > local.UpdatedAt:
		return remote
	default:
		return local
	}
}

// RemoteWins reports whether Resolve would pick remote.
func RemoteWins(local, remote *models.Prompt) bool {
	return remote != nil && Resolve(local, remote) == remote
}
