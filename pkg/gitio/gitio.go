// Package gitio is the local Git operations surface the rest of gitgraft is
// built on: clone/fetch/push/commit/merge-base/readBlob/readTree/log/
// statusMatrix/resolveRef/listBranches/listRemotes/listServerRefs,
// implemented with go-git. Grounded on the teacher's
// distributed/git.LocalClone and pkg/gitdir.GitDirectory, generalized from a
// single-branch, single-remote clone to the multi-remote, arbitrary-ref
// shape gitgraft's RepoStore and PatchEngine need.
package gitio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	log "github.com/sirupsen/logrus"

	"github.com/gitgraft/gitgraft/pkg/ngerrors"
)

// AuthProvider supplies the go-git transport.AuthMethod for a given remote
// URL. The host configures this; gitio never handles credentials itself.
type AuthProvider func(remoteURL string) transport.AuthMethod

// Repo wraps a single on-disk clone directory.
type Repo struct {
	dir  string
	lock sync.Mutex
	repo *git.Repository
	auth AuthProvider
}

// Open opens an existing clone directory.
func Open(dir string, auth AuthProvider) (*Repo, error) {
	r, err := git.PlainOpen(dir)
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("opening git directory %q", dir))
	}
	return &Repo{dir: dir, repo: r, auth: auth}, nil
}

// CloneShallow clones url into dir at depth 1, checking out branch (or the
// remote's default branch if branch is empty).
func CloneShallow(ctx context.Context, dir, url, branch string, auth AuthProvider) (*Repo, error) {
	return clone(ctx, dir, url, branch, 1, auth)
}

// CloneFull clones the complete history of url into dir.
func CloneFull(ctx context.Context, dir, url, branch string, auth AuthProvider) (*Repo, error) {
	return clone(ctx, dir, url, branch, 0, auth)
}

func clone(ctx context.Context, dir, url, branch string, depth int, auth AuthProvider) (*Repo, error) {
	opts := &git.CloneOptions{
		URL:          url,
		SingleBranch: branch != "",
		Depth:        depth,
		Tags:         git.NoTags,
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}
	if auth != nil {
		opts.Auth = auth(url)
	}

	log.Infof("cloning %s into %s (depth=%d)", url, dir, depth)
	r, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ngerrors.New(ngerrors.Timeout, ngerrors.Retriable, fmt.Sprintf("clone of %s timed out", url))
		}
		if errors.Is(err, context.Canceled) {
			return nil, ngerrors.New(ngerrors.OperationAborted, ngerrors.Fatal, fmt.Sprintf("clone of %s was cancelled", url))
		}
		return nil, ngerrors.Wrap(err, fmt.Sprintf("cloning %s", url))
	}
	return &Repo{dir: dir, repo: r, auth: auth}, nil
}

func (r *Repo) Dir() string { return r.dir }

// IsShallow reports whether the clone has a .git/shallow marker.
func (r *Repo) IsShallow() bool {
	hashes, err := r.repo.Storer.Shallow()
	return err == nil && len(hashes) > 0
}

// Fetch updates remote-tracking refs for remoteName (default "origin").
func (r *Repo) Fetch(ctx context.Context, remoteName string, auth transport.AuthMethod) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if remoteName == "" {
		remoteName = "origin"
	}
	err := r.repo.FetchContext(ctx, &git.FetchOptions{RemoteName: remoteName, Auth: auth, Tags: git.NoTags})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return ngerrors.Wrap(err, fmt.Sprintf("fetching %s", remoteName))
	}
	return nil
}

// Deepen fetches additional history up to depth commits on remoteName.
func (r *Repo) Deepen(ctx context.Context, remoteName string, depth int, auth transport.AuthMethod) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if remoteName == "" {
		remoteName = "origin"
	}
	err := r.repo.FetchContext(ctx, &git.FetchOptions{RemoteName: remoteName, Auth: auth, Depth: depth, Tags: git.NoTags})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return ngerrors.Wrap(err, "deepening clone")
	}
	return nil
}

// Push pushes localRef to remoteName.
func (r *Repo) Push(ctx context.Context, remoteName, localRef string, auth transport.AuthMethod, force bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if remoteName == "" {
		remoteName = "origin"
	}
	refspecStr := fmt.Sprintf("%s:%s", localRef, localRef)
	if force {
		refspecStr = "+" + refspecStr
	}
	err := r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{config.RefSpec(refspecStr)},
		Auth:       auth,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return ngerrors.Wrap(err, fmt.Sprintf("pushing %s to %s", localRef, remoteName))
	}
	return nil
}

// CheckoutBranch checks out branch. When create is true the branch is
// created from the current HEAD; otherwise it must already exist locally.
func (r *Repo) CheckoutBranch(branch string, create bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	wt, err := r.repo.Worktree()
	if err != nil {
		return ngerrors.Wrap(err, "getting worktree")
	}
	err = wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(branch), Create: create})
	if err != nil {
		return ngerrors.Wrap(err, fmt.Sprintf("checking out %s", branch))
	}
	return nil
}

// WriteFile writes content to the worktree-relative path and stages it.
func (r *Repo) WriteFile(path string, content []byte) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return ngerrors.Wrap(err, "getting worktree")
	}
	f, err := wt.Filesystem.Create(path)
	if err != nil {
		return ngerrors.Wrap(err, fmt.Sprintf("creating %s", path))
	}
	defer f.Close()
	if _, err := f.Write(content); err != nil {
		return ngerrors.Wrap(err, fmt.Sprintf("writing %s", path))
	}
	if _, err := wt.Add(path); err != nil {
		return ngerrors.Wrap(err, fmt.Sprintf("staging %s", path))
	}
	return nil
}

// RemoveFile removes a worktree-relative path and stages the removal.
func (r *Repo) RemoveFile(path string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return ngerrors.Wrap(err, "getting worktree")
	}
	if err := wt.Filesystem.Remove(path); err != nil {
		return ngerrors.Wrap(err, fmt.Sprintf("removing %s", path))
	}
	if _, err := wt.Remove(path); err != nil {
		return ngerrors.Wrap(err, fmt.Sprintf("staging removal of %s", path))
	}
	return nil
}

// HasStagedChanges reports whether the worktree differs from HEAD.
func (r *Repo) HasStagedChanges() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, ngerrors.Wrap(err, "getting worktree")
	}
	status, err := wt.Status()
	if err != nil {
		return false, ngerrors.Wrap(err, "getting status")
	}
	return !status.IsClean(), nil
}

// Commit creates a commit of all staged changes, authored by name/email,
// and returns its OID.
func (r *Repo) Commit(message, name, email string) (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", ngerrors.Wrap(err, "getting worktree")
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: name, Email: email, When: time.Now()},
	})
	if err != nil {
		return "", ngerrors.Wrap(err, "committing")
	}
	return hash.String(), nil
}

// ResolveRef resolves a ref name (branch, tag, or HEAD) to its commit OID.
func (r *Repo) ResolveRef(ref string) (string, error) {
	h, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return "", ngerrors.Wrap(err, fmt.Sprintf("resolving %s", ref))
	}
	return h.String(), nil
}

// Head returns the symbolic name the HEAD points to, e.g. "main".
func (r *Repo) Head() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", ngerrors.Wrap(err, "getting HEAD")
	}
	return ref.Name().Short(), nil
}

// ListBranches returns local branch names.
func (r *Repo) ListBranches() ([]string, error) {
	iter, err := r.repo.Branches()
	if err != nil {
		return nil, ngerrors.Wrap(err, "listing branches")
	}
	var out []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		out = append(out, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, ngerrors.Wrap(err, "iterating branches")
	}
	return out, nil
}

// ListRemotes returns configured remote names.
func (r *Repo) ListRemotes() ([]string, error) {
	remotes, err := r.repo.Remotes()
	if err != nil {
		return nil, ngerrors.Wrap(err, "listing remotes")
	}
	out := make([]string, 0, len(remotes))
	for _, rm := range remotes {
		out = append(out, rm.Config().Name)
	}
	return out, nil
}

// ListServerRefs lists the refs advertised by url without cloning, used by
// RepoStore.needs-update and by the "verifiably empty remote" check.
func ListServerRefs(ctx context.Context, url string, auth transport.AuthMethod) ([]*plumbing.Reference, error) {
	rem := git.NewRemote(nil, &config.RemoteConfig{Name: "anonymous", URLs: []string{url}})
	refs, err := rem.ListContext(ctx, &git.ListOptions{Auth: auth})
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("listing refs on %s", url))
	}
	return refs, nil
}

// ReadBlob returns the content of path at the given commit OID.
func (r *Repo) ReadBlob(commitOID, path string) ([]byte, error) {
	commit, err := r.repo.CommitObject(plumbing.NewHash(commitOID))
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("loading commit %s", commitOID))
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, ngerrors.Wrap(err, "loading tree")
	}
	f, err := tree.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, ngerrors.New(ngerrors.RepoNotFound, ngerrors.UserActionable, fmt.Sprintf("%s not found at %s", path, commitOID))
		}
		return nil, ngerrors.Wrap(err, fmt.Sprintf("reading %s", path))
	}
	content, err := f.Contents()
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("reading contents of %s", path))
	}
	return []byte(content), nil
}

// MergeBase returns the merge-base commit OID of a and b.
func (r *Repo) MergeBase(a, b string) (string, error) {
	ca, err := r.repo.CommitObject(plumbing.NewHash(a))
	if err != nil {
		return "", ngerrors.Wrap(err, fmt.Sprintf("loading commit %s", a))
	}
	cb, err := r.repo.CommitObject(plumbing.NewHash(b))
	if err != nil {
		return "", ngerrors.Wrap(err, fmt.Sprintf("loading commit %s", b))
	}
	bases, err := ca.MergeBase(cb)
	if err != nil {
		return "", ngerrors.Wrap(err, "computing merge base")
	}
	if len(bases) == 0 {
		return "", ngerrors.New(ngerrors.UnknownError, ngerrors.Fatal, "no merge base found")
	}
	return bases[0].Hash.String(), nil
}

// IsAncestor reports whether ancestor is an ancestor of (or equal to)
// descendant.
func (r *Repo) IsAncestor(ancestor, descendant string) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	d, err := r.repo.CommitObject(plumbing.NewHash(descendant))
	if err != nil {
		return false, ngerrors.Wrap(err, fmt.Sprintf("loading commit %s", descendant))
	}
	a, err := r.repo.CommitObject(plumbing.NewHash(ancestor))
	if err != nil {
		return false, ngerrors.Wrap(err, fmt.Sprintf("loading commit %s", ancestor))
	}
	return d.IsAncestor(a)
}

// Log returns the commit history of ref, newest first, bounded by limit (0
// = unbounded).
func (r *Repo) Log(ref string, limit int) ([]string, error) {
	h, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("resolving %s", ref))
	}
	iter, err := r.repo.Log(&git.LogOptions{From: *h})
	if err != nil {
		return nil, ngerrors.Wrap(err, "walking log")
	}
	var out []string
	err = iter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(out) >= limit {
			return storerStop
		}
		out = append(out, c.Hash.String())
		return nil
	})
	if err != nil && err != storerStop {
		return nil, ngerrors.Wrap(err, "iterating log")
	}
	return out, nil
}

var storerStop = errors.New("stop")
