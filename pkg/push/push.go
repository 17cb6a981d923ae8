// Package push implements the PushCoordinator (C8): safe-push preflight
// against a single remote, and multi-remote fan-out with topic-branch
// fallback on protected-branch rejection. Grounded on the teacher's
// distributed/git.LocalClone.Push (shallow/dirty preflight shape) and
// distributed/git/github.NewGitHubPRCommitHandler for the vendor-assisted
// protected-branch path.
package push

import (
	"context"
	"fmt"
	"regexp"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/gitgraft/gitgraft/pkg/gitio"
	"github.com/gitgraft/gitgraft/pkg/ngerrors"
	ntransport "github.com/gitgraft/gitgraft/pkg/transport"
)

// TopicBranchPrefix is the ref namespace a rejected push to a protected
// branch falls back to.
const TopicBranchPrefix = "grasp/patch-"

// RemoteConfig describes one push target.
type RemoteConfig struct {
	URL                       string
	AllowTopicBranchFallback bool
	Auth                      transport.AuthMethod
}

// DefaultRemoteConfig sets AllowTopicBranchFallback true, matching the
// pinned Open Question decision: the heuristic fires by default, but a
// caller that knows a remote has no branch protection can opt out per-remote.
func DefaultRemoteConfig(url string, auth transport.AuthMethod) RemoteConfig {
	return RemoteConfig{URL: url, AllowTopicBranchFallback: true, Auth: auth}
}

// NeedsUpdateChecker reports whether the local branch is behind its remote
// counterpart. Injected rather than depending on pkg/repostore directly, to
// keep push decoupled from the cache-index implementation.
type NeedsUpdateChecker func(ctx context.Context, remoteURL string) (bool, error)

// PushOutcome is one remote's result from SafePush.
type PushOutcome struct {
	RemoteURL      string
	OK             bool
	Fallback       bool
	PushedRef      string
	Warning        string
	Err            error
}

var protectedBranchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)pre-receive hook declined`),
	regexp.MustCompile(`(?i)protected branch`),
}

// relayBackedHost matches hostnames conventionally used for relay-backed
// Git servers in this ecosystem, where every push is treated as going to a
// shared branch namespace rather than a maintainer-owned default branch.
var relayBackedHost = regexp.MustCompile(`(?i)(^|\.|//)relay\.|^wss?://`)

func isRelayBacked(url string) bool {
	return relayBackedHost.MatchString(url)
}

func looksProtectedBranchRejection(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, p := range protectedBranchPatterns {
		if p.MatchString(msg) {
			return true
		}
	}
	return false
}

// Coordinator drives safe-push preflight and multi-remote fan-out.
type Coordinator struct {
	repo         *gitio.Repo
	needsUpdate  NeedsUpdateChecker
	authorName   string
	authorEmail  string
}

func NewCoordinator(repo *gitio.Repo, needsUpdate NeedsUpdateChecker) *Coordinator {
	return &Coordinator{repo: repo, needsUpdate: needsUpdate}
}

// SafePush runs the §4.8 preflight, then pushes branch to remote, falling
// back to a topic branch on protected-branch rejection.
func (c *Coordinator) SafePush(ctx context.Context, remote RemoteConfig, branch string) (PushOutcome, error) {
	if c.repo == nil {
		return PushOutcome{}, ngerrors.New(ngerrors.NotCloned, ngerrors.UserActionable, "repo is not cloned")
	}

	dirty, err := c.repo.HasStagedChanges()
	if err != nil {
		return PushOutcome{}, err
	}
	if dirty {
		return PushOutcome{}, ngerrors.New(ngerrors.DirtyWorkingTree, ngerrors.UserActionable, "working tree has uncommitted changes")
	}

	if c.repo.IsShallow() {
		return PushOutcome{}, ngerrors.New(ngerrors.ShallowRefusal, ngerrors.UserActionable, "refusing to push from a shallow clone")
	}

	if c.needsUpdate != nil {
		stale, err := c.needsUpdate(ctx, remote.URL)
		if err != nil {
			return PushOutcome{}, err
		}
		if stale {
			return PushOutcome{}, ngerrors.New(ngerrors.NeedsSync, ngerrors.UserActionable, "local branch is behind its remote; sync before pushing")
		}
	}

	pushErr := c.repo.Push(ctx, "origin", "refs/heads/"+branch, remote.Auth, false)
	if pushErr == nil {
		return PushOutcome{RemoteURL: remote.URL, OK: true, PushedRef: "refs/heads/" + branch}, nil
	}

	fallbackWarranted := remote.AllowTopicBranchFallback &&
		(looksProtectedBranchRejection(pushErr) || isRelayBacked(remote.URL))
	if !fallbackWarranted {
		return PushOutcome{RemoteURL: remote.URL, OK: false, Err: pushErr}, nil
	}

	topicRef := "refs/heads/" + TopicBranchPrefix + shortID(branch)
	fallbackErr := c.repo.Push(ctx, "origin", topicRef, remote.Auth, false)
	if fallbackErr != nil {
		return PushOutcome{RemoteURL: remote.URL, OK: false, Err: fallbackErr}, nil
	}
	return PushOutcome{
		RemoteURL: remote.URL,
		OK:        true,
		Fallback:  true,
		PushedRef: topicRef,
		Warning:   fmt.Sprintf("push to %s rejected; fell back to %s", branch, topicRef),
	}, nil
}

// PushAll fans SafePush out across every configured remote in parallel,
// using the write-to-all primitive so one remote's failure doesn't block
// the others.
func (c *Coordinator) PushAll(ctx context.Context, remotes []RemoteConfig, branch string) ntransport.WriteSummary {
	urls := make([]string, len(remotes))
	byURL := make(map[string]RemoteConfig, len(remotes))
	for i, r := range remotes {
		urls[i] = r.URL
		byURL[r.URL] = r
	}

	return ntransport.WriteToAll(ctx, urls, ntransport.WriteOptions{}, func(opCtx context.Context, url string) error {
		outcome, err := c.SafePush(opCtx, byURL[url], branch)
		if err != nil {
			return err
		}
		if !outcome.OK {
			return outcome.Err
		}
		return nil
	})
}

func shortID(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
