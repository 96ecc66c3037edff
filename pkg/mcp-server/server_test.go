// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package mcpserver_test

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	mcpclient "storj.io/mcp-s3/pkg/mcp-client"
	mcpserver "storj.io/mcp-s3/pkg/mcp-server"
	"storj.io/mcp-s3/pkg/s3client"
	"storj.io/mcp-s3/pkg/s3client/s3clienttest"
)

func startPeer(t *testing.T, fake *s3clienttest.Fake) *mcpserver.Peer {
	ctx, cancel := context.WithCancel(context.Background())

	peer, err := mcpserver.NewWithClient(ctx, zaptest.NewLogger(t), mcpserver.Config{
		Address: "127.0.0.1:0",
	}, s3client.NewWithAPI(fake))
	require.NoError(t, err)

	var group errgroup.Group
	group.Go(func() error {
		return peer.Run(ctx)
	})
	t.Cleanup(func() {
		cancel()
		require.NoError(t, peer.Close())
		require.NoError(t, group.Wait())
	})

	return peer
}

func TestHealthEndpoint(t *testing.T) {
	peer := startPeer(t, s3clienttest.New())

	resp, err := http.Get(fmt.Sprintf("http://%s/health", peer.Address()))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestToolCatalogOverHTTP(t *testing.T) {
	peer := startPeer(t, s3clienttest.New())

	client, err := mcpclient.New(fmt.Sprintf("http://%s/mcp", peer.Address()))
	require.NoError(t, err)
	defer func() { require.NoError(t, client.Close()) }()

	names, err := client.ListTools(t.Context())
	require.NoError(t, err)
	require.Equal(t, []string{
		"list-buckets",
		"exists-bucket",
		"create-bucket",
		"delete-bucket",
		"list-objects",
		"get-object",
		"put-object",
		"delete-object",
		"get-object-metadata",
	}, names)
}

func TestBucketAndObjectScenario(t *testing.T) {
	ctx := t.Context()
	peer := startPeer(t, s3clienttest.New())

	client, err := mcpclient.New(fmt.Sprintf("http://%s/mcp", peer.Address()))
	require.NoError(t, err)
	defer func() { require.NoError(t, client.Close()) }()

	exists, err := client.ExistsBucket(ctx, "documents")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, client.CreateBucket(ctx, "documents"))

	exists, err = client.ExistsBucket(ctx, "documents")
	require.NoError(t, err)
	require.True(t, exists)

	buckets, err := client.ListBuckets(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Bucket: documents"}, buckets)

	dir := t.TempDir()
	uploadPath := filepath.Join(dir, "upload.txt")
	require.NoError(t, os.WriteFile(uploadPath, []byte("hello world"), 0600))

	require.NoError(t, client.PutObject(ctx, mcpclient.PutObjectRequest{
		BucketName: "documents",
		Key:        "notes.txt",
		Path:       uploadPath,
	}))

	objects, err := client.ListObjects(ctx, mcpclient.ListObjectsRequest{BucketName: "documents"})
	require.NoError(t, err)
	require.Equal(t, []string{"Object[key=notes.txt, version_id=null]"}, objects)

	metadata, err := client.GetObjectMetadata(ctx, mcpclient.GetObjectMetadataRequest{
		BucketName: "documents",
		Key:        "notes.txt",
	})
	require.NoError(t, err)
	require.Contains(t, metadata, "content_length=11")

	downloadPath := filepath.Join(dir, "download.txt")
	require.NoError(t, client.GetObject(ctx, mcpclient.GetObjectRequest{
		BucketName: "documents",
		Key:        "notes.txt",
		Path:       downloadPath,
	}))

	data, err := os.ReadFile(downloadPath)
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), data)

	require.NoError(t, client.DeleteObject(ctx, mcpclient.DeleteObjectRequest{
		BucketName: "documents",
		Key:        "notes.txt",
	}))
	require.NoError(t, client.DeleteBucket(ctx, "documents"))

	exists, err = client.ExistsBucket(ctx, "documents")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestToolFailuresSurfaceAsErrors(t *testing.T) {
	ctx := t.Context()
	fake := s3clienttest.New()
	peer := startPeer(t, fake)

	client, err := mcpclient.New(fmt.Sprintf("http://%s/mcp", peer.Address()))
	require.NoError(t, err)
	defer func() { require.NoError(t, client.Close()) }()

	fake.Errs["ListBuckets"] = s3clienttest.Error.New("boom")

	_, err = client.ListBuckets(ctx)
	require.Error(t, err)
	require.True(t, mcpclient.Error.Has(err))
	require.Contains(t, err.Error(), "Failed to list buckets")
}

func TestResourceCatalogTracksBuckets(t *testing.T) {
	ctx := t.Context()
	fake := s3clienttest.New()

	// buckets created before startup appear as resources
	s3 := s3client.NewWithAPI(fake)
	require.NoError(t, s3.CreateBucket(ctx, "preexisting"))

	peer := startPeer(t, fake)

	client, err := mcpclient.New(fmt.Sprintf("http://%s/mcp", peer.Address()))
	require.NoError(t, err)
	defer func() { require.NoError(t, client.Close()) }()

	uris, err := client.ListResources(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"s3://preexisting"}, uris)

	// buckets created through the tool appear in the next listing
	require.NoError(t, client.CreateBucket(ctx, "fresh"))

	uris, err = client.ListResources(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"s3://preexisting", "s3://fresh"}, uris)

	// and deleted buckets disappear from it
	require.NoError(t, client.DeleteBucket(ctx, "fresh"))

	uris, err = client.ListResources(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"s3://preexisting"}, uris)

	// a failed listing keeps the previous catalog
	fake.Errs["ListBuckets"] = s3clienttest.Error.New("boom")

	uris, err = client.ListResources(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"s3://preexisting"}, uris)
}

func TestShutdownDelayReportsUnhealthy(t *testing.T) {
	fake := s3clienttest.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	peer, err := mcpserver.NewWithClient(ctx, zaptest.NewLogger(t), mcpserver.Config{
		Address:       "127.0.0.1:0",
		ShutdownDelay: 500 * time.Millisecond,
	}, s3client.NewWithAPI(fake))
	require.NoError(t, err)

	var group errgroup.Group
	group.Go(func() error {
		return peer.Run(ctx)
	})

	healthURL := fmt.Sprintf("http://%s/health", peer.Address())

	resp, err := http.Get(healthURL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	closed := make(chan error, 1)
	go func() { closed <- peer.Close() }()

	// while the shutdown delay runs, the server answers 503
	require.Eventually(t, func() bool {
		resp, err := http.Get(healthURL)
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		return resp.StatusCode == http.StatusServiceUnavailable
	}, 400*time.Millisecond, 10*time.Millisecond)

	require.NoError(t, <-closed)
	require.NoError(t, group.Wait())
}
