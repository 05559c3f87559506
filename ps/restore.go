package ps

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v6/plumbing"
	"github.com/nickyhof/flintdb/core"
)

var ErrCommitNotFound = errors.New("commit not found")

// Restore records a new commit whose tree is the tree of commit id, so the
// table reads as it did at that commit while later history is kept.
func (persistence *Persistence) Restore(id string, identity core.Identity) (Transaction, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	if !plumbing.IsHash(id) {
		return Transaction{}, fmt.Errorf("%w: %q", ErrCommitNotFound, id)
	}
	hash, _ := plumbing.FromHex(id)
	commit, err := persistence.repo.CommitObject(hash)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %s", ErrCommitNotFound, id)
	}

	txn, err := persistence.commit(commit.TreeHash, identity, "Restoring to transaction "+id)
	if err != nil {
		return Transaction{}, err
	}
	if err := persistence.syncWorktree(); err != nil {
		return Transaction{}, fmt.Errorf("failed to sync worktree: %w", err)
	}
	return txn, nil
}
