package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/blog-cms-backend/errs"
)

func TestGetters(t *testing.T) {
	c := map[string]string{
		"PORT":     "9090",
		"BAD_INT":  "nine",
		"DEBUG":    "true",
		"INTERVAL": "90s",
		"SECONDS":  "30",
		"ORIGINS":  "https://a.example, ,https://b.example",
		"EMPTY":    "",
	}

	assert.Equal(t, "9090", GetString(c, "PORT", "8080"))
	assert.Equal(t, "fallback", GetString(c, "EMPTY", "fallback"))
	assert.Equal(t, 9090, GetInt(c, "PORT", 8080))
	assert.Equal(t, 7, GetInt(c, "BAD_INT", 7))
	assert.True(t, GetBool(c, "DEBUG", false))
	assert.True(t, GetBool(c, "MISSING", true))
	assert.Equal(t, 90*time.Second, GetDuration(c, "INTERVAL", time.Minute))
	assert.Equal(t, 30*time.Second, GetDuration(c, "SECONDS", time.Minute))
	assert.Equal(t, time.Minute, GetDuration(c, "BAD_INT", time.Minute))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, GetStrings(c, "ORIGINS", nil))
	assert.Equal(t, []string{"*"}, GetStrings(c, "EMPTY", []string{"*"}))
	assert.Equal(t, "x", GetString(nil, "PORT", "x"))
}

func TestMerge(t *testing.T) {
	merged := Merge(map[string]string{"A": "1", "B": "2"}, map[string]string{"B": "3", "C": "4"})
	assert.Equal(t, map[string]string{"A": "1", "B": "3", "C": "4"}, merged)
	assert.Equal(t, map[string]string{"C": "4"}, Merge(nil, map[string]string{"C": "4"}))
}

type fakeSSM struct {
	pages []*ssm.GetParametersByPathOutput
	calls int
	err   error
}

func (f *fakeSSM) GetParametersByPath(ctx context.Context, in *ssm.GetParametersByPathInput, _ ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

func TestLoadParameters(t *testing.T) {
	client := &fakeSSM{pages: []*ssm.GetParametersByPathOutput{
		{
			Parameters: []types.Parameter{
				{Name: aws.String("/blog-cms/prod/JWT_SECRET"), Value: aws.String("s3cret")},
				{Name: aws.String("/blog-cms/prod/PORT"), Value: aws.String("8081")},
			},
			NextToken: aws.String("page-2"),
		},
		{
			Parameters: []types.Parameter{
				{Name: aws.String("/blog-cms/prod/db/DATABASE_URL"), Value: aws.String("postgres://db")},
			},
		},
	}}

	params, err := loadParameters(context.Background(), client, "/blog-cms/prod")
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
	assert.Equal(t, map[string]string{
		"JWT_SECRET":   "s3cret",
		"PORT":         "8081",
		"DATABASE_URL": "postgres://db",
	}, params)
}

func TestLoadParametersError(t *testing.T) {
	_, err := loadParameters(context.Background(), &fakeSSM{err: errors.New("access denied")}, "/blog-cms/prod")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}
