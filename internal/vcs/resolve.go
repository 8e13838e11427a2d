package vcs

import (
	"context"
	"strings"
)

// ResolveAndClone implements the shallow-clone resolution sequence for
// a pinned commit identity, spec §4.C:
//
//  1. Ask the remote for a unique ref whose tip equals that identity.
//  2. If found, clone that ref shallow and check out the pinned
//     identity.
//  3. On failure, clone that ref at full depth and retry the checkout.
//  4. On failure, full unrestricted clone and checkout.
//
// commit must be a commit identity (spec: "pinned to a commit
// identity"), not an arbitrary ref; use Clone directly for named
// branches/tags.
func (g *Git) ResolveAndClone(ctx context.Context, url, commit, target string) error {
	ref, err := g.tryFindUniqueRefBySha(ctx, url, commit)
	if err == nil && ref != "" {
		if cloneErr := g.Clone(ctx, CloneParams{URL: url, Branch: ref, Depth: 1}, target); cloneErr == nil {
			if status, checkoutErr := g.Checkout(ctx, target, commit); checkoutErr == nil && status == 0 {
				return nil
			}
		}
	}

	if ref != "" {
		if cloneErr := g.Clone(ctx, CloneParams{URL: url, Branch: ref}, target); cloneErr == nil {
			if status, checkoutErr := g.Checkout(ctx, target, commit); checkoutErr == nil && status == 0 {
				return nil
			}
		}
	}

	if err := g.Clone(ctx, CloneParams{URL: url}, target); err != nil {
		return err
	}
	status, err := g.Checkout(ctx, target, commit)
	if err != nil {
		return err
	}
	if status != 0 {
		return &CheckoutFailedError{Commit: commit}
	}
	return nil
}

// CheckoutFailedError indicates a checkout step returned a non-zero
// status after all fallbacks in ResolveAndClone were exhausted.
type CheckoutFailedError struct {
	Commit string
}

func (e *CheckoutFailedError) Error() string {
	return "checkout failed for commit " + e.Commit
}

// tryFindUniqueRefBySha asks the remote for a single ref whose tip
// equals sha. Returns an empty string (no error) if no unique ref is
// found.
func (g *Git) tryFindUniqueRefBySha(ctx context.Context, url, sha string) (string, error) {
	status, stdout, stderr, err := g.run(ctx, "", "ls-remote", url)
	if err != nil {
		return "", err
	}
	if status != 0 {
		return "", &lsRemoteFailedError{stderr: stderr}
	}

	var match string
	for _, line := range strings.Split(stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		if fields[0] != sha {
			continue
		}
		if match != "" && match != fields[1] {
			return "", nil // ambiguous
		}
		match = fields[1]
	}
	return match, nil
}

type lsRemoteFailedError struct{ stderr string }

func (e *lsRemoteFailedError) Error() string { return "git ls-remote failed: " + e.stderr }
