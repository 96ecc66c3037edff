// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package s3clienttest provides an in-memory implementation of the S3 API
// surface used by the adapter, for tests.
package s3clienttest

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/zeebo/errs"
)

// Error is a class of errors returned by the fake for invalid requests.
var Error = errs.Class("s3clienttest")

type object struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

// Fake is an in-memory stand-in for an S3 service. Per-operation errors can
// be injected through Errs, and Calls counts invocations by operation name.
type Fake struct {
	mu      sync.Mutex
	buckets map[string]map[string]object
	now     time.Time

	Errs  map[string]error
	Calls map[string]int

	// LastListObjectsInput records the most recent ListObjectsV2 request.
	LastListObjectsInput *s3.ListObjectsV2Input
}

// New constructs an empty Fake.
func New() *Fake {
	return &Fake{
		buckets: make(map[string]map[string]object),
		now:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Errs:    make(map[string]error),
		Calls:   make(map[string]int),
	}
}

// TotalCalls returns the number of API invocations across all operations.
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	var total int
	for _, n := range f.Calls {
		total += n
	}
	return total
}

// ResetCalls clears all recorded invocation counts.
func (f *Fake) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = make(map[string]int)
}

func (f *Fake) enter(op string) error {
	f.Calls[op]++
	return f.Errs[op]
}

// ListBuckets implements s3client.API.
func (f *Fake) ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("ListBuckets"); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(f.buckets))
	for name := range f.buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	out := &s3.ListBucketsOutput{}
	for _, name := range names {
		out.Buckets = append(out.Buckets, types.Bucket{
			Name:         aws.String(name),
			CreationDate: aws.Time(f.now),
		})
	}
	return out, nil
}

// HeadBucket implements s3client.API.
func (f *Fake) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("HeadBucket"); err != nil {
		return nil, err
	}
	if _, ok := f.buckets[aws.ToString(params.Bucket)]; !ok {
		return nil, Error.New("bucket %q not found", aws.ToString(params.Bucket))
	}
	return &s3.HeadBucketOutput{}, nil
}

// CreateBucket implements s3client.API.
func (f *Fake) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("CreateBucket"); err != nil {
		return nil, err
	}
	name := aws.ToString(params.Bucket)
	if _, ok := f.buckets[name]; ok {
		return nil, Error.New("bucket %q already exists", name)
	}
	f.buckets[name] = make(map[string]object)
	return &s3.CreateBucketOutput{}, nil
}

// DeleteBucket implements s3client.API. Non-empty buckets are rejected.
func (f *Fake) DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("DeleteBucket"); err != nil {
		return nil, err
	}
	name := aws.ToString(params.Bucket)
	objects, ok := f.buckets[name]
	if !ok {
		return nil, Error.New("bucket %q not found", name)
	}
	if len(objects) > 0 {
		return nil, Error.New("bucket %q is not empty", name)
	}
	delete(f.buckets, name)
	return &s3.DeleteBucketOutput{}, nil
}

// ListObjectsV2 implements s3client.API. Keys are returned in lexicographic
// order; Prefix, StartAfter, ContinuationToken and MaxKeys are honored,
// Delimiter grouping is not simulated.
func (f *Fake) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.LastListObjectsInput = params
	if err := f.enter("ListObjectsV2"); err != nil {
		return nil, err
	}

	objects, ok := f.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, Error.New("bucket %q not found", aws.ToString(params.Bucket))
	}

	after := aws.ToString(params.StartAfter)
	if token := aws.ToString(params.ContinuationToken); token > after {
		after = token
	}

	keys := make([]string, 0, len(objects))
	for key := range objects {
		if !strings.HasPrefix(key, aws.ToString(params.Prefix)) {
			continue
		}
		if after != "" && key <= after {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	limit := len(keys)
	if params.MaxKeys != nil && int(*params.MaxKeys) < limit {
		limit = int(*params.MaxKeys)
	}

	out := &s3.ListObjectsV2Output{
		KeyCount:    aws.Int32(int32(limit)),
		IsTruncated: aws.Bool(limit < len(keys)),
	}
	for _, key := range keys[:limit] {
		obj := objects[key]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(obj.data))),
			LastModified: aws.Time(obj.lastModified),
		})
	}
	if limit > 0 && limit < len(keys) {
		out.NextContinuationToken = aws.String(keys[limit-1])
	}
	return out, nil
}

// GetObject implements s3client.API.
func (f *Fake) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("GetObject"); err != nil {
		return nil, err
	}
	obj, err := f.lookup(params.Bucket, params.Key)
	if err != nil {
		return nil, err
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.data)),
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		LastModified:  aws.Time(obj.lastModified),
	}, nil
}

// PutObject implements s3client.API.
func (f *Fake) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("PutObject"); err != nil {
		return nil, err
	}
	objects, ok := f.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, Error.New("bucket %q not found", aws.ToString(params.Bucket))
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	objects[aws.ToString(params.Key)] = object{
		data:         data,
		contentType:  "application/octet-stream",
		lastModified: f.now,
	}
	return &s3.PutObjectOutput{}, nil
}

// DeleteObject implements s3client.API.
func (f *Fake) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("DeleteObject"); err != nil {
		return nil, err
	}
	objects, ok := f.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, Error.New("bucket %q not found", aws.ToString(params.Bucket))
	}
	delete(objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

// HeadObject implements s3client.API.
func (f *Fake) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.enter("HeadObject"); err != nil {
		return nil, err
	}
	obj, err := f.lookup(params.Bucket, params.Key)
	if err != nil {
		return nil, err
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.data))),
		ContentType:   aws.String(obj.contentType),
		LastModified:  aws.Time(obj.lastModified),
	}, nil
}

func (f *Fake) lookup(bucket, key *string) (object, error) {
	objects, ok := f.buckets[aws.ToString(bucket)]
	if !ok {
		return object{}, Error.New("bucket %q not found", aws.ToString(bucket))
	}
	obj, ok := objects[aws.ToString(key)]
	if !ok {
		return object{}, Error.New("object %q not found", aws.ToString(key))
	}
	return obj, nil
}
