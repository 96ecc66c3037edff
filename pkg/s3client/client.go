// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package s3client is a thin adapter over an S3-compatible service. It turns
// tool-level parameters into SDK calls and adds no retry, caching, or
// pagination policy of its own.
package s3client

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
)

var (
	mon = monkit.Package()

	// Error is a class of s3client errors.
	Error = errs.Class("s3client")
)

// Client wraps a single shared S3 client bound to one endpoint. The
// underlying SDK client is safe for concurrent use, so Client is too.
type Client struct {
	api API
}

// New constructs a Client connected to the endpoint in config.
func New(ctx context.Context, config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(config.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			config.AccessKeyID, config.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	api := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(config.Endpoint)
		o.UsePathStyle = config.UsePathStyle
	})

	return &Client{api: api}, nil
}

// NewWithAPI constructs a Client over an existing API implementation.
func NewWithAPI(api API) *Client {
	return &Client{api: api}
}

// ListBuckets returns all buckets visible to the configured credentials.
func (client *Client) ListBuckets(ctx context.Context) (_ []types.Bucket, err error) {
	defer mon.Task()(&ctx)(&err)

	out, err := client.api.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, Error.Wrap(err)
	}

	return out.Buckets, nil
}

// BucketExists probes bucket with a HeadBucket request. Any failure,
// including access denial, reports as non-existence.
func (client *Client) BucketExists(ctx context.Context, bucket string) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = client.api.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})

	return Error.Wrap(err)
}

// CreateBucket creates bucket on the remote service.
func (client *Client) CreateBucket(ctx context.Context, bucket string) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = client.api.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})

	return Error.Wrap(err)
}

// DeleteBucket deletes bucket. The service rejects deletion of non-empty
// buckets and the error is passed through.
func (client *Client) DeleteBucket(ctx context.Context, bucket string) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = client.api.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(bucket),
	})

	return Error.Wrap(err)
}

// ListObjectsParams selects a single page of a bucket listing. Optional
// fields are sent to the service only when non-nil.
type ListObjectsParams struct {
	Bucket            string
	Prefix            *string
	Delimiter         *string
	MaxKeys           *int32
	ContinuationToken *string
	StartAfter        *string
}

// ListObjects returns one page of objects from a bucket.
func (client *Client) ListObjects(ctx context.Context, params ListObjectsParams) (_ *s3.ListObjectsV2Output, err error) {
	defer mon.Task()(&ctx)(&err)

	out, err := client.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:            aws.String(params.Bucket),
		Prefix:            params.Prefix,
		Delimiter:         params.Delimiter,
		MaxKeys:           params.MaxKeys,
		ContinuationToken: params.ContinuationToken,
		StartAfter:        params.StartAfter,
	})
	if err != nil {
		return nil, Error.Wrap(err)
	}

	return out, nil
}

// GetObject opens a download stream for key in bucket. The caller is
// responsible for closing the returned body.
func (client *Client) GetObject(ctx context.Context, bucket, key string, versionID *string) (_ io.ReadCloser, err error) {
	defer mon.Task()(&ctx)(&err)

	out, err := client.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket:    aws.String(bucket),
		Key:       aws.String(key),
		VersionId: versionID,
	})
	if err != nil {
		return nil, Error.Wrap(err)
	}

	return out.Body, nil
}

// PutObject uploads body to key in bucket, replacing any existing object.
func (client *Client) PutObject(ctx context.Context, bucket, key string, body io.Reader) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = client.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})

	return Error.Wrap(err)
}

// DeleteObject removes key from bucket.
func (client *Client) DeleteObject(ctx context.Context, bucket, key string, versionID *string) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = client.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket:    aws.String(bucket),
		Key:       aws.String(key),
		VersionId: versionID,
	})

	return Error.Wrap(err)
}

// HeadObject returns the metadata of key in bucket without its content.
func (client *Client) HeadObject(ctx context.Context, bucket, key string, versionID *string) (_ *s3.HeadObjectOutput, err error) {
	defer mon.Task()(&ctx)(&err)

	out, err := client.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket:    aws.String(bucket),
		Key:       aws.String(key),
		VersionId: versionID,
	})
	if err != nil {
		return nil, Error.Wrap(err)
	}

	return out, nil
}
