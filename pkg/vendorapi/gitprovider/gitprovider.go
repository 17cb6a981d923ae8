// Package gitprovider adapts fluxcd/go-git-providers' gitprovider.Client —
// the very dependency the teacher's pkg/gitdir/transport.go imports for
// gitprovider.TransportType — to the VendorApi contract. go-git-providers
// gives a uniform repository-management surface across GitHub, GitLab, and
// Stash (gitprovider.Client.OrgRepositories/UserRepositories), which is the
// closest thing in the retrieved pack to the Design Notes' VendorApi trait,
// so this adapter drives it directly instead of hand-rolling a third
// vendor-specific REST client.
//
// go-git-providers targets repository/branch bootstrapping, not issue
// tracking or pull requests, so this adapter only implements the
// repo-management subset of VendorApi; the rest report ngerrors.Unsupported
// and callers fall back to the github/gitea adapters for those hosts.
package gitprovider

import (
	"context"
	"fmt"

	"github.com/fluxcd/go-git-providers/gitprovider"

	"github.com/gitgraft/gitgraft/pkg/ngerrors"
	"github.com/gitgraft/gitgraft/pkg/vendorapi"
)

// Adapter implements vendorapi.VendorApi over a gitprovider.Client, for
// hosts where repository bootstrapping needs a uniform surface but no
// issue/PR-capable REST SDK is wired.
type Adapter struct {
	client gitprovider.Client
}

// New wraps an already-authenticated gitprovider.Client (e.g. built with
// github.NewClient or stash.NewClient from go-git-providers).
func New(client gitprovider.Client) *Adapter {
	return &Adapter{client: client}
}

var _ vendorapi.VendorApi = (*Adapter)(nil)

func (a *Adapter) orgRepoRef(owner, name string) gitprovider.OrgRepositoryRef {
	return gitprovider.OrgRepositoryRef{
		OrganizationRef: gitprovider.OrganizationRef{
			Domain:       a.client.SupportedDomain(),
			Organization: owner,
		},
		RepositoryName: name,
	}
}

func (a *Adapter) GetRepo(ctx context.Context, owner, name string) (*vendorapi.Repo, error) {
	repo, err := a.client.OrgRepositories().Get(ctx, a.orgRepoRef(owner, name))
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("getting %s/%s", owner, name))
	}
	return fromRepository(owner, name, repo.Get()), nil
}

func (a *Adapter) CreateRepo(ctx context.Context, owner, name string, private bool) (*vendorapi.Repo, error) {
	visibility := gitprovider.RepositoryVisibilityPublic
	if private {
		visibility = gitprovider.RepositoryVisibilityPrivate
	}
	repo, err := a.client.OrgRepositories().Create(ctx, a.orgRepoRef(owner, name), gitprovider.RepositoryInfo{
		Visibility: &visibility,
	})
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("creating %s/%s", owner, name))
	}
	return fromRepository(owner, name, repo.Get()), nil
}

func (a *Adapter) UpdateRepo(ctx context.Context, owner, name string, update vendorapi.RepoUpdate) (*vendorapi.Repo, error) {
	repo, err := a.client.OrgRepositories().Get(ctx, a.orgRepoRef(owner, name))
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("getting %s/%s for update", owner, name))
	}
	info := repo.Get()
	if update.Description != nil {
		info.Description = update.Description
	}
	if update.DefaultBranch != nil {
		info.DefaultBranch = update.DefaultBranch
	}
	if update.Private != nil {
		visibility := gitprovider.RepositoryVisibilityPublic
		if *update.Private {
			visibility = gitprovider.RepositoryVisibilityPrivate
		}
		info.Visibility = &visibility
	}
	if err := repo.Set(info); err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("setting %s/%s", owner, name))
	}
	if err := repo.Update(ctx); err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("updating %s/%s", owner, name))
	}
	return fromRepository(owner, name, repo.Get()), nil
}

func (a *Adapter) ForkRepo(ctx context.Context, owner, name string) (*vendorapi.Repo, error) {
	return nil, unsupported("forking a repository")
}

func (a *Adapter) ListIssues(ctx context.Context, owner, name string) ([]vendorapi.Issue, error) {
	return nil, unsupported("issue tracking")
}

func (a *Adapter) CreateIssue(ctx context.Context, owner, name, title, body string) (*vendorapi.Issue, error) {
	return nil, unsupported("issue tracking")
}

func (a *Adapter) ListPullRequests(ctx context.Context, owner, name string) ([]vendorapi.PullRequest, error) {
	return nil, unsupported("pull request listing")
}

func (a *Adapter) ListBranches(ctx context.Context, owner, name string) ([]string, error) {
	return nil, unsupported("branch listing")
}

func (a *Adapter) ListTags(ctx context.Context, owner, name string) ([]string, error) {
	return nil, unsupported("tag listing")
}

func (a *Adapter) GetFileContent(ctx context.Context, owner, name, ref, path string) ([]byte, error) {
	return nil, unsupported("file content retrieval")
}

func (a *Adapter) GetCurrentUser(ctx context.Context) (*vendorapi.User, error) {
	return nil, unsupported("authenticated-user lookup")
}

func (a *Adapter) IsBranchProtected(ctx context.Context, owner, name, branch string) (bool, error) {
	return false, unsupported("branch protection lookup")
}

func unsupported(op string) error {
	return ngerrors.New(ngerrors.Unsupported, ngerrors.UserActionable,
		fmt.Sprintf("%s is not exposed uniformly across vendors by go-git-providers; register a github/gitea adapter for this host instead", op))
}

func fromRepository(owner, name string, info gitprovider.RepositoryInfo) *vendorapi.Repo {
	r := &vendorapi.Repo{Owner: owner, Name: name}
	if info.DefaultBranch != nil {
		r.DefaultBranch = *info.DefaultBranch
	}
	if info.Visibility != nil {
		r.Private = *info.Visibility == gitprovider.RepositoryVisibilityPrivate
	}
	return r
}
