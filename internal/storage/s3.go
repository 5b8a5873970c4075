package storage

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/graphrag/internal/util"
	loaders3 "github.com/OFFIS-RIT/graphrag/pkg/loader/s3"
)

// Enabled reports whether an S3 source is configured.
func Enabled() bool {
	return util.GetEnv("AWS_BUCKET") != "" || util.GetEnv("AWS_ENDPOINT") != ""
}

// S3Params reads the S3 connection settings from the environment.
func S3Params() loaders3.NewS3GraphFileLoaderParams {
	return loaders3.NewS3GraphFileLoaderParams{
		Bucket:    util.GetEnv("AWS_BUCKET"),
		Endpoint:  util.GetEnv("AWS_ENDPOINT"),
		Region:    util.GetEnvString("AWS_REGION", "us-east-1"),
		AccessKey: util.GetEnv("AWS_ACCESS_KEY"),
		SecretKey: util.GetEnv("AWS_SECRET_KEY"),
	}
}

// NewS3Loader creates the s3:// source from the environment.
func NewS3Loader(ctx context.Context) (*loaders3.S3GraphFileLoader, error) {
	l, err := loaders3.NewS3GraphFileLoader(ctx, S3Params())
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return l, nil
}
