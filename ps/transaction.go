package ps

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
)

type Transaction struct {
	Id     string
	When   time.Time
	Author string // "Name <email>" format
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s}", transaction.Id, transaction.When, transaction.Author)
}

func (persistence *Persistence) LatestTransaction() Transaction {
	headRef, err := persistence.repo.Head()
	if err != nil || headRef == nil {
		// No commits yet
		return Transaction{}
	}

	commit, err := persistence.repo.CommitObject(headRef.Hash())
	if err != nil {
		return Transaction{}
	}

	return transactionOf(commit)
}

// History returns up to limit commits, newest first. A limit of zero or
// less returns all of them.
func (persistence *Persistence) History(limit int) []Transaction {
	var transactions []Transaction

	cIter, err := persistence.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil
	}
	defer cIter.Close()

	cIter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(transactions) >= limit {
			return errStopIteration
		}
		transactions = append(transactions, transactionOf(c))
		return nil
	})

	return transactions
}

var errStopIteration = fmt.Errorf("stop iteration")

func transactionOf(commit *object.Commit) Transaction {
	author := ""
	if commit.Author.Name != "" || commit.Author.Email != "" {
		author = fmt.Sprintf("%s <%s>", commit.Author.Name, commit.Author.Email)
	}

	return Transaction{
		Id:     commit.Hash.String(),
		When:   commit.Committer.When,
		Author: author,
	}
}
