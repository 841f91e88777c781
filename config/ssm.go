package config

import (
	"context"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-cms-backend/errs"
)

// LoadSSM reads every parameter under parameterPath from AWS Systems
// Manager Parameter Store. The last path segment becomes the key, so
// /blog-cms/prod/JWT_SECRET is returned as JWT_SECRET.
func LoadSSM(ctx context.Context, parameterPath string) (map[string]string, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errs.NewConfigError("aws", err)
	}
	return loadParameters(ctx, ssm.NewFromConfig(awsCfg), parameterPath)
}

func loadParameters(ctx context.Context, client ssm.GetParametersByPathAPIClient, parameterPath string) (map[string]string, error) {
	params := make(map[string]string)
	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(parameterPath),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errs.NewConfigError(parameterPath, err)
		}
		for _, p := range page.Parameters {
			name := aws.ToString(p.Name)
			if name == "" {
				continue
			}
			params[path.Base(name)] = aws.ToString(p.Value)
		}
	}
	log.Info().Str("path", parameterPath).Int("count", len(params)).Msg("Loaded parameters from SSM")
	return params, nil
}

// Load returns the process environment, overlaid with Parameter Store
// values when SSM_PARAMETER_PATH is set.
func Load(ctx context.Context) (map[string]string, error) {
	c := New()
	parameterPath := GetString(c, "SSM_PARAMETER_PATH", "")
	if parameterPath == "" {
		return c, nil
	}
	params, err := LoadSSM(ctx, parameterPath)
	if err != nil {
		return nil, err
	}
	return Merge(c, params), nil
}
