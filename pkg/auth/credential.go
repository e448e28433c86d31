// Package auth owns the credential bootstrap: it loads the mounted
// service-account key exactly once, exchanges it for an access token at the
// credential's token endpoint, and keeps the token valid for the life of the
// process. Application logic borrows the authenticated client through its
// oauth2.TokenSource and never re-derives credentials itself.
package auth

import (
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"

	errUtils "github.com/worklab/sessiond/errors"
)

// googleTokenURI is used when the credential file omits token_uri.
const googleTokenURI = "https://oauth2.googleapis.com/token"

// credentialTypeServiceAccount is the only credential type the bootstrap
// accepts.
const credentialTypeServiceAccount = "service_account"

// Credential is a parsed service-account key. It is immutable once loaded;
// the file is never re-read mid-process.
type Credential struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri"`
}

// LoadCredential reads and parses the service-account key at path. The file
// handle is scoped to this call; nothing network-related happens here.
//
// Failure classes:
//   - file absent: errors.ErrCredentialNotFound
//   - file present but unreadable: errors.ErrCredentialUnreadable
//   - content not parseable as a service-account key: errors.ErrCredentialMalformed
//   - parseable but missing a required field: errors.ErrCredentialIncomplete
func LoadCredential(path string) (*Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errUtils.ErrCredentialNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %w", errUtils.ErrCredentialUnreadable, path, err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errUtils.ErrCredentialMalformed, path, err)
	}
	if cred.Type != "" && cred.Type != credentialTypeServiceAccount {
		return nil, fmt.Errorf("%w: %s: unexpected credential type %q", errUtils.ErrCredentialMalformed, path, cred.Type)
	}

	if cred.ClientEmail == "" {
		return nil, fmt.Errorf("%w: %s: client_email", errUtils.ErrCredentialIncomplete, path)
	}
	if cred.PrivateKey == "" {
		return nil, fmt.Errorf("%w: %s: private_key", errUtils.ErrCredentialIncomplete, path)
	}
	if block, _ := pem.Decode([]byte(cred.PrivateKey)); block == nil {
		return nil, fmt.Errorf("%w: %s: private_key is not PEM-encoded", errUtils.ErrCredentialMalformed, path)
	}
	if cred.TokenURI == "" {
		cred.TokenURI = googleTokenURI
	}

	return &cred, nil
}
