// File: internal/awsenv/derive.go
// Brief: Child-process environment derivation from session credentials.

package awsenv

import (
	"context"
	"strings"
)

// Variables overridden (or stripped) in every derived environment. AWS_PROFILE
// must never leak into the child: explicit keys supersede profile-based auth,
// and a stale profile alongside them confuses some SDKs.
var managedVars = []string{
	"AWS_PROFILE",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"AWS_SESSION_TOKEN",
	"AWS_DEFAULT_REGION",
	"CDK_DEFAULT_REGION",
	"AWS_REGION",
}

// Derive builds the environment for a toolchain subprocess: a copy of the
// ambient environment with the session's credentials and region substituted
// for any ambient AWS connection variables. When the session has no temporary
// token, AWS_SESSION_TOKEN is absent from the result rather than empty, so
// children do not mistake the keys for temporary credentials.
//
// The result is recomputed from the session on every call; session
// credentials can be short-lived and must never be cached here.
func Derive(ctx context.Context, ambient []string, s Session) ([]string, error) {
	creds, err := s.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	region := s.Region()

	env := make([]string, 0, len(ambient)+6)
	for _, kv := range ambient {
		if isManaged(kv) {
			continue
		}
		env = append(env, kv)
	}
	env = append(env,
		"AWS_ACCESS_KEY_ID="+creds.AccessKeyID,
		"AWS_SECRET_ACCESS_KEY="+creds.SecretAccessKey,
		// Most AWS SDKs read AWS_DEFAULT_REGION; the CDK documents
		// CDK_DEFAULT_REGION; cdk-assets needs AWS_REGION to pick its STS
		// endpoint. Set all three to the session's region.
		"AWS_DEFAULT_REGION="+region,
		"CDK_DEFAULT_REGION="+region,
		"AWS_REGION="+region,
	)
	if creds.SessionToken != "" {
		env = append(env, "AWS_SESSION_TOKEN="+creds.SessionToken)
	}
	return env, nil
}

func isManaged(kv string) bool {
	name, _, ok := strings.Cut(kv, "=")
	if !ok {
		return false
	}
	for _, v := range managedVars {
		if name == v {
			return true
		}
	}
	return false
}
