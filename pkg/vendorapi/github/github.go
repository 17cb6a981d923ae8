// Package github adapts go-github's REST client to the VendorApi contract.
// Grounded on the teacher's distributed/git/github package, which drives
// the same go-github client for PR creation and milestone/label lookups;
// this adapter generalizes that single PR-creation hook into the full
// VendorApi surface.
package github

import (
	"context"
	"fmt"

	gogithub "github.com/google/go-github/v32/github"
	"golang.org/x/oauth2"

	"github.com/gitgraft/gitgraft/pkg/ngerrors"
	"github.com/gitgraft/gitgraft/pkg/vendorapi"
)

// Adapter implements vendorapi.VendorApi over go-github.
type Adapter struct {
	client *gogithub.Client
}

// New builds an Adapter authenticated with token (empty for unauthenticated
// read-only access, subject to GitHub's lower rate limit).
func New(ctx context.Context, token string) *Adapter {
	var client *gogithub.Client
	if token == "" {
		client = gogithub.NewClient(nil)
	} else {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = gogithub.NewClient(oauth2.NewClient(ctx, ts))
	}
	return &Adapter{client: client}
}

var _ vendorapi.VendorApi = (*Adapter)(nil)

func (a *Adapter) GetRepo(ctx context.Context, owner, name string) (*vendorapi.Repo, error) {
	r, _, err := a.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("getting %s/%s", owner, name))
	}
	return fromGHRepo(r), nil
}

func (a *Adapter) CreateRepo(ctx context.Context, owner, name string, private bool) (*vendorapi.Repo, error) {
	r, _, err := a.client.Repositories.Create(ctx, owner, &gogithub.Repository{
		Name:    gogithub.String(name),
		Private: gogithub.Bool(private),
	})
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("creating %s/%s", owner, name))
	}
	return fromGHRepo(r), nil
}

func (a *Adapter) UpdateRepo(ctx context.Context, owner, name string, update vendorapi.RepoUpdate) (*vendorapi.Repo, error) {
	patch := &gogithub.Repository{}
	if update.Description != nil {
		patch.Description = update.Description
	}
	if update.DefaultBranch != nil {
		patch.DefaultBranch = update.DefaultBranch
	}
	if update.Private != nil {
		patch.Private = update.Private
	}
	r, _, err := a.client.Repositories.Edit(ctx, owner, name, patch)
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("updating %s/%s", owner, name))
	}
	return fromGHRepo(r), nil
}

func (a *Adapter) ForkRepo(ctx context.Context, owner, name string) (*vendorapi.Repo, error) {
	r, _, err := a.client.Repositories.CreateFork(ctx, owner, name, nil)
	if err != nil {
		if _, ok := err.(*gogithub.AcceptedError); ok {
			return nil, nil
		}
		return nil, ngerrors.Wrap(err, fmt.Sprintf("forking %s/%s", owner, name))
	}
	return fromGHRepo(r), nil
}

func (a *Adapter) ListIssues(ctx context.Context, owner, name string) ([]vendorapi.Issue, error) {
	issues, _, err := a.client.Issues.ListByRepo(ctx, owner, name, nil)
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("listing issues for %s/%s", owner, name))
	}
	out := make([]vendorapi.Issue, 0, len(issues))
	for _, iss := range issues {
		if iss.PullRequestLinks != nil {
			continue
		}
		out = append(out, vendorapi.Issue{
			Number: iss.GetNumber(),
			Title:  iss.GetTitle(),
			Body:   iss.GetBody(),
			State:  iss.GetState(),
			URL:    iss.GetHTMLURL(),
		})
	}
	return out, nil
}

func (a *Adapter) CreateIssue(ctx context.Context, owner, name, title, body string) (*vendorapi.Issue, error) {
	iss, _, err := a.client.Issues.Create(ctx, owner, name, &gogithub.IssueRequest{
		Title: gogithub.String(title),
		Body:  gogithub.String(body),
	})
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("creating issue on %s/%s", owner, name))
	}
	return &vendorapi.Issue{Number: iss.GetNumber(), Title: iss.GetTitle(), Body: iss.GetBody(), State: iss.GetState(), URL: iss.GetHTMLURL()}, nil
}

func (a *Adapter) ListPullRequests(ctx context.Context, owner, name string) ([]vendorapi.PullRequest, error) {
	prs, _, err := a.client.PullRequests.List(ctx, owner, name, nil)
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("listing pull requests for %s/%s", owner, name))
	}
	out := make([]vendorapi.PullRequest, 0, len(prs))
	for _, pr := range prs {
		out = append(out, vendorapi.PullRequest{
			Number:     pr.GetNumber(),
			Title:      pr.GetTitle(),
			State:      pr.GetState(),
			HeadBranch: pr.GetHead().GetRef(),
			HeadSHA:    pr.GetHead().GetSHA(),
			BaseBranch: pr.GetBase().GetRef(),
			URL:        pr.GetHTMLURL(),
		})
	}
	return out, nil
}

func (a *Adapter) ListBranches(ctx context.Context, owner, name string) ([]string, error) {
	branches, _, err := a.client.Repositories.ListBranches(ctx, owner, name, nil)
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("listing branches for %s/%s", owner, name))
	}
	out := make([]string, 0, len(branches))
	for _, b := range branches {
		out = append(out, b.GetName())
	}
	return out, nil
}

func (a *Adapter) ListTags(ctx context.Context, owner, name string) ([]string, error) {
	tags, _, err := a.client.Repositories.ListTags(ctx, owner, name, nil)
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("listing tags for %s/%s", owner, name))
	}
	out := make([]string, 0, len(tags))
	for _, tg := range tags {
		out = append(out, tg.GetName())
	}
	return out, nil
}

func (a *Adapter) GetFileContent(ctx context.Context, owner, name, ref, path string) ([]byte, error) {
	content, _, _, err := a.client.Repositories.GetContents(ctx, owner, name, path, &gogithub.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return nil, ngerrors.Wrap(err, fmt.Sprintf("reading %s at %s/%s@%s", path, owner, name, ref))
	}
	if content == nil {
		return nil, ngerrors.New(ngerrors.RepoNotFound, ngerrors.UserActionable, fmt.Sprintf("%s is a directory, not a file", path))
	}
	decoded, err := content.GetContent()
	if err != nil {
		return nil, ngerrors.Wrap(err, "decoding file content")
	}
	return []byte(decoded), nil
}

func (a *Adapter) GetCurrentUser(ctx context.Context) (*vendorapi.User, error) {
	u, _, err := a.client.Users.Get(ctx, "")
	if err != nil {
		return nil, ngerrors.Wrap(err, "getting current user")
	}
	return &vendorapi.User{Login: u.GetLogin(), Name: u.GetName(), Email: u.GetEmail()}, nil
}

func (a *Adapter) IsBranchProtected(ctx context.Context, owner, name, branch string) (bool, error) {
	b, _, err := a.client.Repositories.GetBranch(ctx, owner, name, branch)
	if err != nil {
		return false, ngerrors.Wrap(err, fmt.Sprintf("checking branch protection for %s on %s/%s", branch, owner, name))
	}
	return b.GetProtected(), nil
}

func fromGHRepo(r *gogithub.Repository) *vendorapi.Repo {
	return &vendorapi.Repo{
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		DefaultBranch: r.GetDefaultBranch(),
		Private:       r.GetPrivate(),
		CloneURL:      r.GetCloneURL(),
		WebURL:        r.GetHTMLURL(),
	}
}
