// Package repostore implements RepoStore (C6): the local clone lifecycle
// (initialize/shallow/deepen/sync/cache) plus the persistent metadata index
// backed by internal/cachekv. Grounded on the teacher's pkg/gitdir
// (checkout-loop/clone/pull pattern) and distributed/git.LocalClone
// (verifyRead/verifyWrite, mutex-guarded mutation), generalized from a
// single branch/remote to the multi-remote, multi-data-level shape the
// spec's Repo Cache Entry needs.
package repostore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/gitgraft/gitgraft/internal/cachekv"
	"github.com/gitgraft/gitgraft/pkg/address"
	"github.com/gitgraft/gitgraft/pkg/gitio"
	"github.com/gitgraft/gitgraft/pkg/ngerrors"
	"github.com/gitgraft/gitgraft/pkg/util"
	nsync "github.com/gitgraft/gitgraft/pkg/util/sync"
)

// DataLevel is the local clone depth category, monotonic per CRA.
type DataLevel string

const (
	DataLevelRefs    DataLevel = "refs"
	DataLevelShallow DataLevel = "shallow"
	DataLevelFull    DataLevel = "full"
)

var dataLevelRank = map[DataLevel]int{DataLevelRefs: 0, DataLevelShallow: 1, DataLevelFull: 2}

// BranchRef is one entry in a CacheEntry's branch list.
type BranchRef struct {
	Name   string `json:"name"`
	Commit string `json:"commit"`
}

// CacheEntry is the §3 "Repo Cache Entry", keyed by CRA.
type CacheEntry struct {
	LastUpdated time.Time   `json:"lastUpdated"`
	HeadCommit  string      `json:"headCommit"`
	DataLevel   DataLevel   `json:"dataLevel"`
	Branches    []BranchRef `json:"branches"`
	Tags        []string    `json:"tags,omitempty"`
	CloneURLs   []string    `json:"cloneUrls"`
	CommitCount int         `json:"commitCount,omitempty"`
}

// NeedsUpdateStaleAge is the cache-age threshold past which needs-update
// returns true even without a remote-head mismatch.
const NeedsUpdateStaleAge = 1 * time.Hour

const storeName = "repos"

// RepoStore owns the local on-disk Git clones and the persistent index.
type RepoStore struct {
	root  string
	cache *cachekv.Store
	auth  gitio.AuthProvider
	locks nsync.NamedLockMap
}

// New constructs a RepoStore rooted at root, with its cache database at
// <root>/.gitgraft-cache.db.
func New(root string, auth gitio.AuthProvider) (*RepoStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("creating root %s", root))
	}
	cache, err := cachekv.Open(filepath.Join(root, ".gitgraft-cache.db"))
	if err != nil {
		return nil, err
	}
	return &RepoStore{root: root, cache: cache, auth: auth, locks: nsync.NewNamedLockMap()}, nil
}

func (s *RepoStore) Close() error { return s.cache.Close() }

func (s *RepoStore) dirFor(cra *address.Result) string {
	return filepath.Join(s.root, address.FilesystemKey(cra))
}

func (s *RepoStore) lockFor(craKey string) nsync.LockWithData {
	return s.locks.LockByName(craKey)
}

// Locks returns the per-CRA lock map RepoStore serializes its clone
// operations on, for building a patch.Applier that shares it.
func (s *RepoStore) Locks() nsync.NamedLockMap { return s.locks }

// GetCacheEntry loads the cache entry for cra, if any.
func (s *RepoStore) GetCacheEntry(cra string) (*CacheEntry, bool, error) {
	var e CacheEntry
	found, err := s.cache.Get(storeName, cra, &e)
	if err != nil || !found {
		return nil, found, err
	}
	return &e, true, nil
}

// SetCacheEntry stores e for cra.
func (s *RepoStore) SetCacheEntry(cra string, e CacheEntry) error {
	e.LastUpdated = time.Now()
	return s.cache.Put(storeName, cra, e, e.LastUpdated)
}

// DeleteCacheEntry removes the cache entry for cra.
func (s *RepoStore) DeleteCacheEntry(cra string) error {
	return s.cache.Delete(storeName, cra)
}

// Initialize clones cra via cloneURLs if it isn't already cloned; a no-op
// otherwise. Records DataLevelShallow.
func (s *RepoStore) Initialize(ctx context.Context, cra *address.Result, cloneURLs []string) error {
	lock := s.lockFor(cra.CanonicalAddress)
	lock.Lock()
	defer lock.Unlock()

	dir := s.dirFor(cra)
	if util.DirExists(dir) {
		return nil
	}
	if len(cloneURLs) == 0 {
		return ngerrors.New(ngerrors.RepoNotFound, ngerrors.UserActionable, "no clone URLs available")
	}

	var lastErr error
	for _, url := range cloneURLs {
		repo, err := gitio.CloneShallow(ctx, dir, url, "", s.auth)
		if err != nil {
			lastErr = err
			continue
		}
		head, _ := repo.Head()
		oid, _ := repo.ResolveRef("HEAD")
		return s.SetCacheEntry(cra.CanonicalAddress, CacheEntry{
			HeadCommit: oid,
			DataLevel:  DataLevelShallow,
			Branches:   []BranchRef{{Name: head, Commit: oid}},
			CloneURLs:  cloneURLs,
		})
	}
	return ngerrors.Wrap(lastErr, "initializing repo: all clone URLs failed")
}

// SmartInitialize is like Initialize, but additionally skips the clone
// entirely when force is false and the cache entry is fresh (age <
// NeedsUpdateStaleAge) and the remote head matches the cached head.
func (s *RepoStore) SmartInitialize(ctx context.Context, cra *address.Result, cloneURLs []string, force bool) error {
	if !force {
		entry, found, err := s.GetCacheEntry(cra.CanonicalAddress)
		if err != nil {
			return err
		}
		if found && util.DirExists(s.dirFor(cra)) {
			stale, err := s.NeedsUpdate(ctx, cra, cloneURLs, entry, time.Now())
			if err != nil {
				return err
			}
			if !stale {
				return nil
			}
		}
	}
	return s.Initialize(ctx, cra, cloneURLs)
}

// EnsureShallow idempotently ensures the clone exists at shallow depth.
func (s *RepoStore) EnsureShallow(ctx context.Context, cra *address.Result, cloneURLs []string, branch string) error {
	return s.Initialize(ctx, cra, cloneURLs)
}

// EnsureFull idempotently deepens the clone to full history (or the
// requested depth if depth > 0). Only a full deepen records DataLevelFull.
func (s *RepoStore) EnsureFull(ctx context.Context, cra *address.Result, branch string, depth int) error {
	lock := s.lockFor(cra.CanonicalAddress)
	lock.Lock()
	defer lock.Unlock()

	dir := s.dirFor(cra)
	repo, err := gitio.Open(dir, s.auth)
	if err != nil {
		return ngerrors.New(ngerrors.NotCloned, ngerrors.UserActionable, "repo is not cloned yet")
	}

	entry, found, err := s.GetCacheEntry(cra.CanonicalAddress)
	if err != nil {
		return err
	}
	if found && entry.DataLevel == DataLevelFull {
		return nil
	}

	if err := repo.Deepen(ctx, "origin", depth, authFor(s.auth, entry)); err != nil {
		return err
	}
	if found && depth <= 0 {
		entry.DataLevel = monotonicUpgrade(entry.DataLevel, DataLevelFull)
		return s.SetCacheEntry(cra.CanonicalAddress, *entry)
	}
	return nil
}

// Sync fetches the clone's origin remote (authenticating for
// cloneURLs[0]), resolves branch robustly, and refreshes the cache entry,
// recording cloneURLs in it. The other cloneURLs are not tried.
func (s *RepoStore) Sync(ctx context.Context, cra *address.Result, cloneURLs []string, branch string) error {
	lock := s.lockFor(cra.CanonicalAddress)
	lock.Lock()
	defer lock.Unlock()

	dir := s.dirFor(cra)
	repo, err := gitio.Open(dir, s.auth)
	if err != nil {
		return ngerrors.New(ngerrors.NotCloned, ngerrors.UserActionable, "repo is not cloned yet")
	}

	var auth transport.AuthMethod
	if s.auth != nil && len(cloneURLs) > 0 {
		auth = s.auth(cloneURLs[0])
	}
	if err := repo.Fetch(ctx, "origin", auth); err != nil {
		return err
	}

	resolved, err := ResolveBranch(repo, branch)
	if err != nil {
		return err
	}
	oid, err := repo.ResolveRef(resolved)
	if err != nil {
		return err
	}
	entry, found, err := s.GetCacheEntry(cra.CanonicalAddress)
	if err != nil {
		return err
	}
	if !found {
		entry = &CacheEntry{DataLevel: DataLevelShallow}
	}
	entry.HeadCommit = oid
	entry.CloneURLs = cloneURLs
	entry.Branches = upsertBranch(entry.Branches, resolved, oid)
	return s.SetCacheEntry(cra.CanonicalAddress, *entry)
}

// NeedsUpdate reports whether a fetch is warranted: cache missing & remote
// has heads, cache age exceeds NeedsUpdateStaleAge, or cached head differs
// from the remote's main/master head.
//
// A network failure while probing a missing cache's remote is treated as
// "unknown", not "verifiably empty" — this returns true (safe default)
// rather than reusing the permissive branch, per the pinned Open Question
// decision.
func (s *RepoStore) NeedsUpdate(ctx context.Context, cra *address.Result, cloneURLs []string, cached *CacheEntry, now time.Time) (bool, error) {
	if cached == nil {
		if len(cloneURLs) == 0 {
			return true, nil
		}
		var auth transport.AuthMethod
		if s.auth != nil {
			auth = s.auth(cloneURLs[0])
		}
		refs, err := gitio.ListServerRefs(ctx, cloneURLs[0], auth)
		if err != nil {
			return true, nil
		}
		return len(refs) > 0, nil
	}

	if now.Sub(cached.LastUpdated) > NeedsUpdateStaleAge {
		return true, nil
	}

	if len(cloneURLs) == 0 {
		return false, nil
	}
	var auth transport.AuthMethod
	if s.auth != nil {
		auth = s.auth(cloneURLs[0])
	}
	refs, err := gitio.ListServerRefs(ctx, cloneURLs[0], auth)
	if err != nil {
		return true, nil
	}
	for _, ref := range refs {
		name := ref.Name().Short()
		if name == "main" || name == "master" {
			return ref.Hash().String() != cached.HeadCommit, nil
		}
	}
	return true, nil
}

// ResolveBranch robustly resolves a branch name: try requested; else HEAD's
// symbolic target; else "main", then "master"; else the first local branch;
// else fail.
func ResolveBranch(repo *gitio.Repo, requested string) (string, error) {
	if requested != "" {
		if _, err := repo.ResolveRef(requested); err == nil {
			return requested, nil
		}
	}
	if head, err := repo.Head(); err == nil && head != "" {
		if _, err := repo.ResolveRef(head); err == nil {
			return head, nil
		}
	}
	for _, candidate := range []string{"main", "master"} {
		if _, err := repo.ResolveRef(candidate); err == nil {
			return candidate, nil
		}
	}
	branches, err := repo.ListBranches()
	if err == nil && len(branches) > 0 {
		return branches[0], nil
	}
	return "", ngerrors.New(ngerrors.InvalidRefspec, ngerrors.UserActionable, "could not resolve any branch")
}

func monotonicUpgrade(current, next DataLevel) DataLevel {
	if dataLevelRank[next] > dataLevelRank[current] {
		return next
	}
	return current
}

func upsertBranch(branches []BranchRef, name, commit string) []BranchRef {
	for i, b := range branches {
		if b.Name == name {
			branches[i].Commit = commit
			return branches
		}
	}
	return append(branches, BranchRef{Name: name, Commit: commit})
}

func authFor(provider gitio.AuthProvider, entry *CacheEntry) transport.AuthMethod {
	if provider == nil || entry == nil || len(entry.CloneURLs) == 0 {
		return nil
	}
	return provider(entry.CloneURLs[0])
}
