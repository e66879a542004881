package doctor

import (
	"context"
	"fmt"

	"github.com/hay-kot/savedeck/internal/core/host"
)

// TokenResolver resolves persisted access tokens.
type TokenResolver interface {
	EntryForPersistentToken(ctx context.Context, token string) (host.Entry, error)
}

// TokenCheck reports history records whose stored access token no longer
// resolves. Such records still work; overwriting them falls back to path
// recovery or asks for the file again.
type TokenCheck struct {
	records  Records
	resolver TokenResolver
	fix      bool
}

// NewTokenCheck creates a stale token check. If fix is true, stale tokens are
// removed from their records.
func NewTokenCheck(records Records, resolver TokenResolver, fix bool) *TokenCheck {
	return &TokenCheck{records: records, resolver: resolver, fix: fix}
}

func (c *TokenCheck) Name() string {
	return "Access Tokens"
}

func (c *TokenCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	records, err := c.records.List(ctx)
	if err != nil {
		result.add(fail("List history", err.Error()))
		return result
	}

	var valid, missing int
	for _, r := range records {
		if !r.HasToken() {
			missing++
			continue
		}

		if _, err := c.resolver.EntryForPersistentToken(ctx, r.Token); err == nil {
			valid++
			continue
		}

		if !c.fix {
			result.add(fixable(r.Filename, fmt.Sprintf("stale token for %s", r.Path)))
			continue
		}

		if err := c.records.UpdateAccess(ctx, r.ID, r.Path, ""); err != nil {
			result.add(fail(r.Filename, fmt.Sprintf("failed to clear token: %v", err)))
		} else {
			result.add(fixed(r.Filename, "cleared stale token"))
		}
	}

	result.add(pass("Tokens", fmt.Sprintf("%d valid, %d record(s) without token", valid, missing)))

	return result
}
