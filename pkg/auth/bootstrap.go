package auth

import (
	"context"

	"github.com/cockroachdb/errors"

	errUtils "github.com/worklab/sessiond/errors"
	log "github.com/worklab/sessiond/pkg/logger"
	"github.com/worklab/sessiond/pkg/retry"
	"github.com/worklab/sessiond/pkg/schema"
)

// Bootstrap produces a ready-to-use authenticated client from the configured
// credential path. The credential file is read exactly once per process; the
// token exchange is retried with bounded backoff, but only while the
// endpoint is unreachable. Load failures and remote rejections abort
// immediately: retrying a missing or invalid credential cannot succeed, and
// the process has no mode of operating without a valid identity.
func Bootstrap(ctx context.Context, cfg *schema.Configuration) (*Client, error) {
	cred, err := LoadCredential(cfg.Credential.Path)
	if err != nil {
		return nil, err
	}
	log.Debug("service account credential loaded", "path", cfg.Credential.Path, "email", cred.ClientEmail)

	client := NewClient(cred, cfg.Auth)
	err = retry.WithPredicate(ctx, &cfg.Auth.Retry,
		func() error { return client.Authenticate(ctx) },
		func(err error) bool { return errors.Is(err, errUtils.ErrAuthUnavailable) },
	)
	if err != nil {
		return nil, err
	}

	log.Info("authenticated", "email", cred.ClientEmail, "project", cred.ProjectID)
	return client, nil
}
