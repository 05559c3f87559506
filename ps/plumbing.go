package ps

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/go-git/go-billy/v6/util"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/nickyhof/flintdb/core"
)

// TreeChange sets or removes one file of the table tree.
type TreeChange struct {
	Path     string        // e.g. "rows/00000000000000000001"
	BlobHash plumbing.Hash // ignored when IsDelete
	IsDelete bool
}

// encoder is implemented by object.Tree and object.Commit.
type encoder interface {
	Encode(plumbing.EncodedObject) error
}

func (p *Persistence) storeObject(o encoder) (plumbing.Hash, error) {
	obj := p.repo.Storer.NewEncodedObject()
	if err := o.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return p.repo.Storer.SetEncodedObject(obj)
}

// createBlob stores data as a blob without touching the worktree.
func (p *Persistence) createBlob(data []byte) (plumbing.Hash, error) {
	obj := p.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	w, err := obj.Writer()
	if err == nil {
		_, err = w.Write(data)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob: %w", err)
	}
	return p.repo.Storer.SetEncodedObject(obj)
}

// pendingDir collects the changes below one directory. A ZeroHash file
// entry removes the file.
type pendingDir struct {
	files map[string]plumbing.Hash
	dirs  map[string]*pendingDir
}

func newPendingDir(changes []TreeChange) *pendingDir {
	root := &pendingDir{files: map[string]plumbing.Hash{}, dirs: map[string]*pendingDir{}}
	for _, c := range changes {
		hash := c.BlobHash
		if c.IsDelete {
			hash = plumbing.ZeroHash
		}
		root.add(strings.Split(c.Path, "/"), hash)
	}
	return root
}

func (d *pendingDir) add(parts []string, hash plumbing.Hash) {
	if len(parts) == 1 {
		d.files[parts[0]] = hash
		return
	}
	sub, ok := d.dirs[parts[0]]
	if !ok {
		sub = &pendingDir{files: map[string]plumbing.Hash{}, dirs: map[string]*pendingDir{}}
		d.dirs[parts[0]] = sub
	}
	sub.add(parts[1:], hash)
}

// gitOrder sorts tree entries the way git does: directories compare as if
// their name ended in a slash.
func gitOrder(a, b object.TreeEntry) int {
	key := func(e object.TreeEntry) string {
		if e.Mode == filemode.Dir {
			return e.Name + "/"
		}
		return e.Name
	}
	return strings.Compare(key(a), key(b))
}

// writeTree applies d on top of the tree at base and stores every touched
// tree once. It returns ZeroHash when nothing is left.
func (p *Persistence) writeTree(base plumbing.Hash, d *pendingDir) (plumbing.Hash, error) {
	entries := map[string]object.TreeEntry{}
	if base != plumbing.ZeroHash {
		tree, err := object.GetTree(p.repo.Storer, base)
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("failed to get tree: %w", err)
		}
		for _, e := range tree.Entries {
			entries[e.Name] = e
		}
	}

	for name, hash := range d.files {
		if hash == plumbing.ZeroHash {
			delete(entries, name)
			continue
		}
		entries[name] = object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: hash}
	}

	for name, sub := range d.dirs {
		subBase := plumbing.ZeroHash
		if e, ok := entries[name]; ok && e.Mode == filemode.Dir {
			subBase = e.Hash
		}
		hash, err := p.writeTree(subBase, sub)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if hash == plumbing.ZeroHash {
			delete(entries, name)
			continue
		}
		entries[name] = object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: hash}
	}

	if len(entries) == 0 {
		return plumbing.ZeroHash, nil
	}
	tree := &object.Tree{Entries: make([]object.TreeEntry, 0, len(entries))}
	for _, e := range entries {
		tree.Entries = append(tree.Entries, e)
	}
	slices.SortFunc(tree.Entries, gitOrder)

	hash, err := p.storeObject(tree)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tree: %w", err)
	}
	return hash, nil
}

// commit records tree as the new HEAD of the current branch.
func (p *Persistence) commit(tree plumbing.Hash, identity core.Identity, message string) (Transaction, error) {
	if tree == plumbing.ZeroHash {
		empty, err := p.storeObject(&object.Tree{})
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to store empty tree: %w", err)
		}
		tree = empty
	}

	now := time.Now()
	sig := object.Signature{Name: identity.Name, Email: identity.Email, When: now}
	c := &object.Commit{Author: sig, Committer: sig, Message: message, TreeHash: tree}

	branch := plumbing.Master
	if head, err := p.repo.Head(); err == nil {
		c.ParentHashes = []plumbing.Hash{head.Hash()}
		if head.Name().IsBranch() {
			branch = head.Name()
		}
	}

	hash, err := p.storeObject(c)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to store commit: %w", err)
	}
	if err := p.repo.Storer.SetReference(plumbing.NewHashReference(branch, hash)); err != nil {
		return Transaction{}, fmt.Errorf("failed to update HEAD: %w", err)
	}

	return Transaction{Id: hash.String(), When: now, Author: identity.String()}, nil
}

// syncWorktree checks HEAD out into the directory of a file-backed table.
// Memory tables read straight from the object store.
func (p *Persistence) syncWorktree() error {
	if p.isMemoryMode {
		return nil
	}

	wt, err := p.repo.Worktree()
	if err != nil {
		return err
	}
	head, err := p.repo.Head()
	if err != nil {
		return err
	}
	tree, err := p.headTree()
	if err != nil {
		return err
	}

	// Reset refuses to empty the base directory.
	if tree == nil || len(tree.Entries) == 0 {
		infos, err := wt.Filesystem.ReadDir("/")
		if err != nil {
			return nil
		}
		for _, info := range infos {
			if info.Name() != ".git" {
				if err := util.RemoveAll(wt.Filesystem, info.Name()); err != nil {
					return err
				}
			}
		}
		return nil
	}

	return wt.Reset(&git.ResetOptions{Mode: git.HardReset, Commit: head.Hash()})
}

// applyChanges writes one commit holding every change and syncs the
// worktree.
func (p *Persistence) applyChanges(changes []TreeChange, identity core.Identity, message string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	base := plumbing.ZeroHash
	current, err := p.headTree()
	if err != nil {
		return Transaction{}, err
	}
	if current != nil {
		base = current.Hash
	}

	tree, err := p.writeTree(base, newPendingDir(changes))
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to update tree: %w", err)
	}

	txn, err := p.commit(tree, identity, message)
	if err != nil {
		return Transaction{}, err
	}

	if err := p.syncWorktree(); err != nil {
		return Transaction{}, fmt.Errorf("failed to sync worktree: %w", err)
	}
	return txn, nil
}

// WriteFilesDirect stores several files in one commit.
func (p *Persistence) WriteFilesDirect(files map[string][]byte, identity core.Identity, message string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	changes := make([]TreeChange, 0, len(files))
	for filePath, data := range files {
		blobHash, err := p.createBlob(data)
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to create blob for %s: %w", filePath, err)
		}
		changes = append(changes, TreeChange{Path: filePath, BlobHash: blobHash})
	}

	return p.applyChanges(changes, identity, message)
}

func (p *Persistence) WriteFileDirect(filePath string, data []byte, identity core.Identity, message string) (Transaction, error) {
	return p.WriteFilesDirect(map[string][]byte{filePath: data}, identity, message)
}

// DeletePathDirect removes paths in one commit. It fails on a repository
// without commits.
func (p *Persistence) DeletePathDirect(paths []string, identity core.Identity, message string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	current, err := p.headTree()
	if err != nil {
		return Transaction{}, err
	}
	if current == nil {
		return Transaction{}, fmt.Errorf("no content exists")
	}

	changes := make([]TreeChange, 0, len(paths))
	for _, filePath := range paths {
		changes = append(changes, TreeChange{Path: filePath, IsDelete: true})
	}

	return p.applyChanges(changes, identity, message)
}

// headTree returns the tree of the HEAD commit, or nil before the first
// commit.
func (p *Persistence) headTree() (*object.Tree, error) {
	headRef, err := p.repo.Head()
	if err != nil {
		return nil, nil
	}

	commit, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	return tree, nil
}

// ReadFileDirect reads a file directly from the Git tree (bypasses worktree filesystem)
func (p *Persistence) ReadFileDirect(filePath string) ([]byte, error) {
	if !p.IsInitialized() {
		return nil, ErrNotInitialized
	}

	tree, err := p.headTree()
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filePath)
	}

	file, err := tree.File(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filePath)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read contents: %w", err)
	}

	return []byte(content), nil
}

// TreeEntry represents a directory entry from the Git tree
type TreeEntry struct {
	Name  string
	IsDir bool
	Hash  plumbing.Hash
}

// ListEntriesDirect lists directory entries directly from the Git tree
func (p *Persistence) ListEntriesDirect(dirPath string) ([]TreeEntry, error) {
	if !p.IsInitialized() {
		return nil, ErrNotInitialized
	}

	tree, err := p.headTree()
	if err != nil || tree == nil {
		return nil, err
	}

	targetTree := tree
	if dirPath != "" && dirPath != "." {
		targetTree, err = tree.Tree(dirPath)
		if err != nil {
			return nil, nil // Directory doesn't exist = empty
		}
	}

	entries := make([]TreeEntry, 0, len(targetTree.Entries))
	for _, entry := range targetTree.Entries {
		entries = append(entries, TreeEntry{
			Name:  entry.Name,
			IsDir: entry.Mode == filemode.Dir,
			Hash:  entry.Hash,
		})
	}

	return entries, nil
}

// readBlob returns the contents of a blob by hash.
func (p *Persistence) readBlob(hash plumbing.Hash) ([]byte, error) {
	blob, err := p.repo.BlobObject(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}
	reader, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	defer reader.Close()

	return io.ReadAll(reader)
}
