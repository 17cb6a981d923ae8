// Package vendorapi is the uniform VendorApi contract (§REDESIGN FLAGS:
// "replace the ad-hoc class hierarchy with a VendorApi trait") plus a
// hostname registry that resolves to a concrete adapter. Grounded on
// other_examples' Provider interface (name/clone/PR/branch surface unified
// across vendors behind one registry) and the teacher's
// distributed/git/github package for the GitHub-specific PR/commit shape.
package vendorapi

import "context"

// Repo is the vendor-agnostic repository shape returned by GetRepo/CreateRepo.
type Repo struct {
	Owner         string
	Name          string
	DefaultBranch string
	Private       bool
	CloneURL      string
	WebURL        string
}

// RepoUpdate carries the mutable subset of Repo fields UpdateRepo accepts.
type RepoUpdate struct {
	Description   *string
	DefaultBranch *string
	Private       *bool
}

// Issue is the vendor-agnostic issue shape.
type Issue struct {
	Number int
	Title  string
	Body   string
	State  string
	URL    string
}

// PullRequest is the vendor-agnostic pull/merge request shape.
type PullRequest struct {
	Number     int
	Title      string
	State      string
	HeadBranch string
	HeadSHA    string
	BaseBranch string
	URL        string
}

// User is the vendor-agnostic authenticated-user shape.
type User struct {
	Login string
	Name  string
	Email string
}

// VendorApi is the uniform surface every vendor REST adapter implements.
// Callers reach vendor-specific behavior (protected-branch detection, for
// example) only through this trait, never through a vendor SDK type
// directly. The trait has no pull-request creation method.
type VendorApi interface {
	GetRepo(ctx context.Context, owner, name string) (*Repo, error)
	CreateRepo(ctx context.Context, owner, name string, private bool) (*Repo, error)
	UpdateRepo(ctx context.Context, owner, name string, update RepoUpdate) (*Repo, error)
	ForkRepo(ctx context.Context, owner, name string) (*Repo, error)
	ListIssues(ctx context.Context, owner, name string) ([]Issue, error)
	CreateIssue(ctx context.Context, owner, name, title, body string) (*Issue, error)
	ListPullRequests(ctx context.Context, owner, name string) ([]PullRequest, error)
	ListBranches(ctx context.Context, owner, name string) ([]string, error)
	ListTags(ctx context.Context, owner, name string) ([]string, error)
	GetFileContent(ctx context.Context, owner, name, ref, path string) ([]byte, error)
	GetCurrentUser(ctx context.Context) (*User, error)

	// IsBranchProtected reports whether branch is protected on the vendor.
	// PushCoordinator does not call it; it detects protected-branch
	// rejections from the push error text.
	IsBranchProtected(ctx context.Context, owner, name, branch string) (bool, error)
}

// Registry resolves a hostname to the VendorApi configured for it, with
// overrides for self-hosted installs (e.g. a self-hosted Gitea at
// git.example.com instead of the public gitea.com).
type Registry struct {
	byHost map[string]VendorApi
}

func NewRegistry() *Registry {
	return &Registry{byHost: make(map[string]VendorApi)}
}

// Register associates host (e.g. "github.com", "git.example.com") with a
// VendorApi implementation.
func (r *Registry) Register(host string, api VendorApi) {
	r.byHost[host] = api
}

// Resolve returns the VendorApi registered for host, if any.
func (r *Registry) Resolve(host string) (VendorApi, bool) {
	api, ok := r.byHost[host]
	return api, ok
}
