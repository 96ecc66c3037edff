// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package tools implements the MCP tools bridging agent tool calls to
// S3-compatible object storage.
package tools

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spacemonkeygo/monkit/v3"

	"storj.io/mcp-s3/pkg/s3client"
)

var mon = monkit.Package()

// defaultMaxKeys is sent to the service when a listing does not specify
// max_keys.
const defaultMaxKeys = 1000

const (
	// ToolListBuckets is the name of a tool for listing buckets.
	ToolListBuckets = "list-buckets"

	// ToolExistsBucket is the name of a tool for checking whether a bucket exists.
	ToolExistsBucket = "exists-bucket"

	// ToolCreateBucket is the name of a tool for creating a bucket.
	ToolCreateBucket = "create-bucket"

	// ToolDeleteBucket is the name of a tool for deleting a bucket.
	ToolDeleteBucket = "delete-bucket"

	// ToolListObjects is the name of a tool for listing objects in a bucket.
	ToolListObjects = "list-objects"

	// ToolGetObject is the name of a tool for downloading an object to a local file.
	ToolGetObject = "get-object"

	// ToolPutObject is the name of a tool for uploading a local file as an object.
	ToolPutObject = "put-object"

	// ToolDeleteObject is the name of a tool for deleting an object.
	ToolDeleteObject = "delete-object"

	// ToolGetObjectMetadata is the name of a tool for getting object metadata.
	ToolGetObjectMetadata = "get-object-metadata"
)

// Tools is a collection of MCP server tools backed by one storage client.
type Tools struct {
	client *s3client.Client
}

// New creates a new Tools.
func New(client *s3client.Client) *Tools {
	return &Tools{client: client}
}

// Registry returns the fixed tool catalog routed to this instance's handlers.
func (t *Tools) Registry() *Registry {
	return NewRegistry(
		Definition{
			Tool: mcp.NewTool(ToolListBuckets,
				mcp.WithDescription("List all buckets with permissions in the object storage"),
			),
			Handler: t.ListBuckets,
		},
		Definition{
			Tool: mcp.NewTool(ToolExistsBucket,
				mcp.WithDescription("Check if a bucket exists"),
				mcp.WithString("bucket_name", mcp.Description("The name of the bucket to check"), mcp.Required()),
			),
			Handler: t.ExistsBucket,
		},
		Definition{
			Tool: mcp.NewTool(ToolCreateBucket,
				mcp.WithDescription("Create a new bucket with permissions in the object storage"),
				mcp.WithString("bucket_name", mcp.Description("The name of the bucket to create"), mcp.Required()),
			),
			Handler: t.CreateBucket,
		},
		Definition{
			Tool: mcp.NewTool(ToolDeleteBucket,
				mcp.WithDescription("Delete a bucket with permissions in the object storage"),
				mcp.WithString("bucket_name", mcp.Description("The name of the bucket to delete"), mcp.Required()),
			),
			Handler: t.DeleteBucket,
		},
		Definition{
			Tool: mcp.NewTool(ToolListObjects,
				mcp.WithDescription("List all objects in a bucket"),
				mcp.WithString("bucket_name", mcp.Description("The name of the bucket to list objects from"), mcp.Required()),
				mcp.WithString("prefix", mcp.Description("The prefix to filter objects by")),
				mcp.WithString("delimiter", mcp.Description("The delimiter to use when listing objects")),
				mcp.WithNumber("max_keys", mcp.Description("The maximum number of keys to return"), mcp.DefaultNumber(defaultMaxKeys)),
				mcp.WithString("continuation_token", mcp.Description("The continuation token to use when listing objects")),
				mcp.WithString("start_after", mcp.Description("The key to start listing objects after")),
			),
			Handler: t.ListObjects,
		},
		Definition{
			Tool: mcp.NewTool(ToolGetObject,
				mcp.WithDescription("Get an object from a bucket"),
				mcp.WithString("bucket_name", mcp.Description("The name of the bucket to get the object from"), mcp.Required()),
				mcp.WithString("key", mcp.Description("The key of the object to get"), mcp.Required()),
				mcp.WithString("version_id", mcp.Description("The version ID of the object to get")),
				mcp.WithString("path", mcp.Description("The path to save the object to"), mcp.Required()),
			),
			Handler: t.GetObject,
		},
		Definition{
			Tool: mcp.NewTool(ToolPutObject,
				mcp.WithDescription("Put an object into a bucket"),
				mcp.WithString("bucket_name", mcp.Description("The name of the bucket to put the object into"), mcp.Required()),
				mcp.WithString("key", mcp.Description("The key of the object to put"), mcp.Required()),
				mcp.WithString("path", mcp.Description("The path to the object to put"), mcp.Required()),
			),
			Handler: t.PutObject,
		},
		Definition{
			Tool: mcp.NewTool(ToolDeleteObject,
				mcp.WithDescription("Delete an object from a bucket"),
				mcp.WithString("bucket_name", mcp.Description("The name of the bucket to delete the object from"), mcp.Required()),
				mcp.WithString("key", mcp.Description("The key of the object to delete"), mcp.Required()),
				mcp.WithString("version_id", mcp.Description("The version ID of the object to delete")),
			),
			Handler: t.DeleteObject,
		},
		Definition{
			Tool: mcp.NewTool(ToolGetObjectMetadata,
				mcp.WithDescription("Get object metadata from a bucket"),
				mcp.WithString("bucket_name", mcp.Description("The name of the bucket to get the object metadata from"), mcp.Required()),
				mcp.WithString("key", mcp.Description("The key of the object to get metadata for"), mcp.Required()),
				mcp.WithString("version_id", mcp.Description("The version ID of the object to get metadata for")),
			),
			Handler: t.GetObjectMetadata,
		},
	)
}

// ListBuckets implements the list-buckets MCP tool.
func (t *Tools) ListBuckets(ctx context.Context, request mcp.CallToolRequest) (_ *mcp.CallToolResult, err error) {
	defer mon.Task()(&ctx)(&err)

	buckets, err := t.client.ListBuckets(ctx)
	if err != nil {
		return mcpToolError("Failed to list buckets")
	}

	content := make([]mcp.Content, 0, len(buckets))
	for _, bucket := range buckets {
		content = append(content, mcp.TextContent{
			Type: "text",
			Text: fmt.Sprintf("Bucket: %s", aws.ToString(bucket.Name)),
		})
	}

	return &mcp.CallToolResult{Content: content}, nil
}

// ExistsBucket implements the exists-bucket MCP tool. A bucket that cannot
// be probed reports as not existing.
func (t *Tools) ExistsBucket(ctx context.Context, request mcp.CallToolRequest) (_ *mcp.CallToolResult, err error) {
	defer mon.Task()(&ctx)(&err)

	bucketName := mcp.ParseString(request, "bucket_name", "")
	if bucketName == "" {
		return mcpToolError("Bucket name is required")
	}

	if probeErr := t.client.BucketExists(ctx, bucketName); probeErr != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Bucket %s not exists", bucketName)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Bucket %s exists", bucketName)), nil
}

// CreateBucket implements the create-bucket MCP tool.
func (t *Tools) CreateBucket(ctx context.Context, request mcp.CallToolRequest) (_ *mcp.CallToolResult, err error) {
	defer mon.Task()(&ctx)(&err)

	bucketName := mcp.ParseString(request, "bucket_name", "")
	if bucketName == "" {
		return mcpToolError("Bucket name is required")
	}

	if err := t.client.CreateBucket(ctx, bucketName); err != nil {
		return mcpToolError("Failed to create bucket")
	}

	return mcp.NewToolResultText(fmt.Sprintf("Bucket %s created successfully", bucketName)), nil
}

// DeleteBucket implements the delete-bucket MCP tool. Deleting a non-empty
// bucket fails with the service's error.
func (t *Tools) DeleteBucket(ctx context.Context, request mcp.CallToolRequest) (_ *mcp.CallToolResult, err error) {
	defer mon.Task()(&ctx)(&err)

	bucketName := mcp.ParseString(request, "bucket_name", "")
	if bucketName == "" {
		return mcpToolError("Bucket name is required")
	}

	if err := t.client.DeleteBucket(ctx, bucketName); err != nil {
		return mcpToolError("Failed to delete bucket")
	}

	return mcp.NewToolResultText(fmt.Sprintf("Bucket %s deleted successfully", bucketName)), nil
}

// ListObjects implements the list-objects MCP tool. Optional parameters are
// forwarded to the service only when the caller supplied them; max_keys
// always goes out, defaulting to defaultMaxKeys.
func (t *Tools) ListObjects(ctx context.Context, request mcp.CallToolRequest) (_ *mcp.CallToolResult, err error) {
	defer mon.Task()(&ctx)(&err)

	bucketName := mcp.ParseString(request, "bucket_name", "")
	if bucketName == "" {
		return mcpToolError("Bucket name is required")
	}

	page, err := t.client.ListObjects(ctx, s3client.ListObjectsParams{
		Bucket:            bucketName,
		Prefix:            optString(request, "prefix"),
		Delimiter:         optString(request, "delimiter"),
		MaxKeys:           aws.Int32(int32(mcp.ParseInt(request, "max_keys", defaultMaxKeys))),
		ContinuationToken: optString(request, "continuation_token"),
		StartAfter:        optString(request, "start_after"),
	})
	if err != nil {
		return mcpToolError("Failed to list objects")
	}

	content := make([]mcp.Content, 0, len(page.Contents))
	for _, object := range page.Contents {
		// ListObjectsV2 pages carry no version IDs.
		content = append(content, mcp.TextContent{
			Type: "text",
			Text: fmt.Sprintf("Object[key=%s, version_id=%s]", aws.ToString(object.Key), "null"),
		})
	}

	return &mcp.CallToolResult{Content: content}, nil
}

// GetObject implements the get-object MCP tool. The object body is written
// to a local file and never returned inline.
func (t *Tools) GetObject(ctx context.Context, request mcp.CallToolRequest) (_ *mcp.CallToolResult, err error) {
	defer mon.Task()(&ctx)(&err)

	bucketName := mcp.ParseString(request, "bucket_name", "")
	key := mcp.ParseString(request, "key", "")
	path := mcp.ParseString(request, "path", "")
	if bucketName == "" || key == "" || path == "" {
		return mcpToolError("Bucket name, key and path are required")
	}

	body, err := t.client.GetObject(ctx, bucketName, key, optString(request, "version_id"))
	if err != nil {
		return mcpToolError("Failed to get object")
	}
	defer func() { _ = body.Close() }()

	f, err := os.Create(path)
	if err != nil {
		return mcpToolError("Failed to get object")
	}

	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return mcpToolError("Failed to get object")
	}
	if err := f.Close(); err != nil {
		return mcpToolError("Failed to get object")
	}

	return mcp.NewToolResultText(fmt.Sprintf("Object %s saved successfully", key)), nil
}

// PutObject implements the put-object MCP tool. The object body is streamed
// from a local file.
func (t *Tools) PutObject(ctx context.Context, request mcp.CallToolRequest) (_ *mcp.CallToolResult, err error) {
	defer mon.Task()(&ctx)(&err)

	bucketName := mcp.ParseString(request, "bucket_name", "")
	key := mcp.ParseString(request, "key", "")
	path := mcp.ParseString(request, "path", "")
	if bucketName == "" || key == "" || path == "" {
		return mcpToolError("Bucket name, key and path are required")
	}

	f, err := os.Open(path)
	if err != nil {
		return mcpToolError("Failed to put object")
	}

	if err := t.client.PutObject(ctx, bucketName, key, f); err != nil {
		_ = f.Close()
		return mcpToolError("Failed to put object")
	}
	if err := f.Close(); err != nil {
		return mcpToolError("Failed to put object")
	}

	return mcp.NewToolResultText(fmt.Sprintf("Object %s saved successfully", key)), nil
}

// DeleteObject implements the delete-object MCP tool.
func (t *Tools) DeleteObject(ctx context.Context, request mcp.CallToolRequest) (_ *mcp.CallToolResult, err error) {
	defer mon.Task()(&ctx)(&err)

	bucketName := mcp.ParseString(request, "bucket_name", "")
	key := mcp.ParseString(request, "key", "")
	if bucketName == "" || key == "" {
		return mcpToolError("Bucket name and key are required")
	}

	if err := t.client.DeleteObject(ctx, bucketName, key, optString(request, "version_id")); err != nil {
		return mcpToolError("Failed to delete object")
	}

	return mcp.NewToolResultText(fmt.Sprintf("Object %s deleted successfully", key)), nil
}

// GetObjectMetadata implements the get-object-metadata MCP tool.
func (t *Tools) GetObjectMetadata(ctx context.Context, request mcp.CallToolRequest) (_ *mcp.CallToolResult, err error) {
	defer mon.Task()(&ctx)(&err)

	bucketName := mcp.ParseString(request, "bucket_name", "")
	key := mcp.ParseString(request, "key", "")
	if bucketName == "" || key == "" {
		return mcpToolError("Bucket name and key are required")
	}

	metadata, err := t.client.HeadObject(ctx, bucketName, key, optString(request, "version_id"))
	if err != nil {
		return mcpToolError("Failed to get object metadata")
	}

	return mcp.NewToolResultText(fmt.Sprintf("Metadata[content_type=%s, content_length=%d,last_modified=%s]",
		aws.ToString(metadata.ContentType),
		aws.ToInt64(metadata.ContentLength),
		formatTime(metadata.LastModified),
	)), nil
}

// optString returns the string argument under key, or nil when the caller
// did not supply it.
func optString(request mcp.CallToolRequest, key string) *string {
	if value, ok := request.GetArguments()[key].(string); ok {
		return aws.String(value)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// mcpToolError returns a tool result error. It's not the same as returning
// an error from the tool handler, which is reserved for protocol errors.
func mcpToolError(message string) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(message), nil
}
