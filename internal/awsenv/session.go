// File: internal/awsenv/session.go
// Brief: AWS session resolution (profile, region, assumed role).

// Package awsenv bridges the caller's AWS session into child-process
// environments. Synthesis and asset publishing run external tools that must
// authenticate as the same principal the build itself uses, so the session's
// resolved credentials are materialized as environment variables rather than
// relying on whatever ambient configuration the child would pick up.
package awsenv

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/pkg/errors"
)

// Session yields the caller's current AWS credentials and region. Credentials
// may be short-lived, so they are re-resolved on every call rather than
// captured once.
type Session interface {
	Credentials(ctx context.Context) (aws.Credentials, error)
	Region() string
}

// SessionOptions selects which AWS identity a build runs as. All fields are
// optional; zero values fall back to the SDK's default resolution chain.
type SessionOptions struct {
	Profile string
	Region  string
	RoleARN string
}

type sdkSession struct {
	provider aws.CredentialsProvider
	region   string
}

// NewSession resolves an AWS configuration for the given profile, region and
// optional assumed role. Resolution failures are fatal to the build; no
// retries happen here.
func NewSession(ctx context.Context, opts SessionOptions) (Session, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if p := strings.TrimSpace(opts.Profile); p != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(p))
	}
	if r := strings.TrimSpace(opts.Region); r != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(r))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "load AWS configuration")
	}
	provider := cfg.Credentials
	if role := strings.TrimSpace(opts.RoleARN); role != "" {
		provider = aws.NewCredentialsCache(stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), role))
	}
	return &sdkSession{provider: provider, region: cfg.Region}, nil
}

func (s *sdkSession) Credentials(ctx context.Context) (aws.Credentials, error) {
	creds, err := s.provider.Retrieve(ctx)
	if err != nil {
		return aws.Credentials{}, errors.Wrap(err, "resolve AWS credentials")
	}
	return creds, nil
}

func (s *sdkSession) Region() string { return s.region }
