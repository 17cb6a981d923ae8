// Package gitea adapts code.gitea.io/sdk/gitea to the VendorApi contract,
// for both gitea.com and self-hosted installs reached through
// vendorapi.Registry's per-hostname overrides. Mirrors pkg/vendorapi/github
// method-for-method so the two adapters stay easy to compare.
package gitea

import (
	"context"
	"encoding/base64"
	"fmt"

	sdk "code.gitea.io/sdk/gitea"

	"github.com/gitgraft/gitgraft/pkg/ngerrors"
	"github.com/gitgraft/gitgraft/pkg/vendorapi"
)

// Adapter implements vendorapi.VendorApi over the Gitea SDK.
type Adapter struct {
	client *sdk.Client
}

// New builds an Adapter against a Gitea instance at baseURL, authenticated
// with token (empty for unauthenticated read-only access).
func New(baseURL, token string) (*Adapter, error) {
	opts := []sdk.ClientOption{}
	if token != "" {
		opts = append(opts, sdk.SetToken(token))
	}
	client, err := sdk.NewClient(baseURL, opts...)
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("connecting to gitea instance at %s", baseURL))
	}
	return &Adapter{client: client}, nil
}

var _ vendorapi.VendorApi = (*Adapter)(nil)

func (a *Adapter) GetRepo(ctx context.Context, owner, name string) (*vendorapi.Repo, error) {
	r, _, err := a.client.GetRepo(owner, name)
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("getting %s/%s", owner, name))
	}
	return fromGiteaRepo(r), nil
}

func (a *Adapter) CreateRepo(ctx context.Context, owner, name string, private bool) (*vendorapi.Repo, error) {
	r, _, err := a.client.CreateRepo(sdk.CreateRepoOption{Name: name, Private: private})
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("creating %s/%s", owner, name))
	}
	return fromGiteaRepo(r), nil
}

func (a *Adapter) UpdateRepo(ctx context.Context, owner, name string, update vendorapi.RepoUpdate) (*vendorapi.Repo, error) {
	opt := sdk.EditRepoOption{}
	if update.Description != nil {
		opt.Description = update.Description
	}
	if update.DefaultBranch != nil {
		opt.DefaultBranch = update.DefaultBranch
	}
	if update.Private != nil {
		opt.Private = update.Private
	}
	r, _, err := a.client.EditRepo(owner, name, opt)
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("updating %s/%s", owner, name))
	}
	return fromGiteaRepo(r), nil
}

func (a *Adapter) ForkRepo(ctx context.Context, owner, name string) (*vendorapi.Repo, error) {
	r, _, err := a.client.CreateFork(owner, name, sdk.CreateForkOption{})
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("forking %s/%s", owner, name))
	}
	return fromGiteaRepo(r), nil
}

func (a *Adapter) ListIssues(ctx context.Context, owner, name string) ([]vendorapi.Issue, error) {
	issues, _, err := a.client.ListRepoIssues(owner, name, sdk.ListIssueOption{})
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("listing issues for %s/%s", owner, name))
	}
	out := make([]vendorapi.Issue, 0, len(issues))
	for _, iss := range issues {
		if iss.PullRequest != nil {
			continue
		}
		out = append(out, vendorapi.Issue{
			Number: int(iss.Index),
			Title:  iss.Title,
			Body:   iss.Body,
			State:  string(iss.State),
			URL:    iss.HTMLURL,
		})
	}
	return out, nil
}

func (a *Adapter) CreateIssue(ctx context.Context, owner, name, title, body string) (*vendorapi.Issue, error) {
	iss, _, err := a.client.CreateIssue(owner, name, sdk.CreateIssueOption{Title: title, Body: body})
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("creating issue on %s/%s", owner, name))
	}
	return &vendorapi.Issue{Number: int(iss.Index), Title: iss.Title, Body: iss.Body, State: string(iss.State), URL: iss.HTMLURL}, nil
}

func (a *Adapter) ListPullRequests(ctx context.Context, owner, name string) ([]vendorapi.PullRequest, error) {
	prs, _, err := a.client.ListRepoPullRequests(owner, name, sdk.ListPullRequestsOptions{})
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("listing pull requests for %s/%s", owner, name))
	}
	out := make([]vendorapi.PullRequest, 0, len(prs))
	for _, pr := range prs {
		out = append(out, vendorapi.PullRequest{
			Number:     int(pr.Index),
			Title:      pr.Title,
			State:      string(pr.State),
			HeadBranch: pr.Head.Ref,
			HeadSHA:    pr.Head.Sha,
			BaseBranch: pr.Base.Ref,
			URL:        pr.HTMLURL,
		})
	}
	return out, nil
}

func (a *Adapter) ListBranches(ctx context.Context, owner, name string) ([]string, error) {
	branches, _, err := a.client.ListRepoBranches(owner, name, sdk.ListRepoBranchesOptions{})
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("listing branches for %s/%s", owner, name))
	}
	out := make([]string, 0, len(branches))
	for _, b := range branches {
		out = append(out, b.Name)
	}
	return out, nil
}

func (a *Adapter) ListTags(ctx context.Context, owner, name string) ([]string, error) {
	tags, _, err := a.client.ListRepoTags(owner, name, sdk.ListRepoTagsOptions{})
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("listing tags for %s/%s", owner, name))
	}
	out := make([]string, 0, len(tags))
	for _, tg := range tags {
		out = append(out, tg.Name)
	}
	return out, nil
}

func (a *Adapter) GetFileContent(ctx context.Context, owner, name, ref, path string) ([]byte, error) {
	contents, _, err := a.client.GetContents(owner, name, ref, path)
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("reading %s at %s/%s@%s", path, owner, name, ref))
	}
	if contents == nil || contents.Content == nil {
		return nil, ngerrors.New(ngerrors.RepoNotFound, ngerrors.UserActionable, fmt.Sprintf("%s is a directory, not a file", path))
	}
	if contents.Encoding != nil && *contents.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(*contents.Content)
		if err != nil {
			return nil, ngerrors.Wrap(err, "decoding base64 file content")
		}
		return decoded, nil
	}
	return []byte(*contents.Content), nil
}

func (a *Adapter) GetCurrentUser(ctx context.Context) (*vendorapi.User, error) {
	u, _, err := a.client.GetMyUserInfo()
	if err != nil {
		return nil, ngerrors.Wrap(err, "getting current user")
	}
	return &vendorapi.User{Login: u.UserName, Name: u.FullName, Email: u.Email}, nil
}

func (a *Adapter) IsBranchProtected(ctx context.Context, owner, name, branch string) (bool, error) {
	b, _, err := a.client.GetRepoBranch(owner, name, branch)
	if err != nil {
		return false, ngerrors.Wrap(err, fmt.Sprintf("checking branch protection for %s on %s/%s", branch, owner, name))
	}
	return b.Protected, nil
}

func fromGiteaRepo(r *sdk.Repository) *vendorapi.Repo {
	return &vendorapi.Repo{
		Owner:         r.Owner.UserName,
		Name:          r.Name,
		DefaultBranch: r.DefaultBranch,
		Private:       r.Private,
		CloneURL:      r.CloneURL,
		WebURL:        r.HTMLURL,
	}
}
