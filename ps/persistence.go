package ps

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"
)

var (
	ErrNotInitialized = errors.New("persistence layer not initialized")
	ErrRepoNotFound   = errors.New("repository not found")
	ErrFileNotFound   = errors.New("file not found")
)

// Persistence is one git repository holding a single table: its descriptor
// and one blob per row.
type Persistence struct {
	repo         *git.Repository
	isMemoryMode bool
}

// IsInitialized returns true if the persistence layer has a valid repository
func (p *Persistence) IsInitialized() bool {
	return p != nil && p.repo != nil
}

// ensureInitialized checks if the persistence layer is initialized and returns an error if not
func (p *Persistence) ensureInitialized() error {
	if !p.IsInitialized() {
		return ErrNotInitialized
	}
	return nil
}

// IsMemory reports whether the repository lives only in process memory.
func (p *Persistence) IsMemory() bool {
	return p.isMemoryMode
}

func NewMemoryPersistence() (*Persistence, error) {
	wt := memfs.New()
	storer := memory.NewStorage()

	repo, err := git.Init(storer, git.WithWorkTree(wt))
	if err != nil {
		return nil, err
	}

	return &Persistence{
		repo:         repo,
		isMemoryMode: true,
	}, nil
}

// NewFilePersistence opens the repository under baseDir, creating it when
// it does not exist yet.
func NewFilePersistence(baseDir string) (*Persistence, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(baseDir)
	fs, err := wt.Chroot(".git")
	if err != nil {
		return nil, err
	}

	storer := filesystem.NewStorageWithOptions(
		fs,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository

	_, statErr := os.Stat(fs.Root())
	if statErr != nil {
		repo, err = git.Init(storer, git.WithWorkTree(wt))
		if err != nil {
			return nil, err
		}
	} else {
		repo, err = git.Open(storer, wt)
		if err != nil {
			return nil, err
		}
	}

	return &Persistence{repo: repo}, nil
}

// OpenFilePersistence opens an existing repository and fails with
// ErrRepoNotFound instead of creating one.
func OpenFilePersistence(baseDir string) (*Persistence, error) {
	if !Exists(baseDir) {
		return nil, ErrRepoNotFound
	}
	return NewFilePersistence(baseDir)
}

// Exists reports whether baseDir holds a repository.
func Exists(baseDir string) bool {
	info, err := os.Stat(filepath.Join(baseDir, ".git"))
	return err == nil && info.IsDir()
}
