// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package mcpclient is a typed client for the MCP S3 server's tools over the
// streamable HTTP transport.
package mcpclient

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/zeebo/errs"

	"storj.io/mcp-s3/pkg/mcp-server/tools"
)

// Error is a class of mcp-client errors.
var Error = errs.Class("mcp-client")

// Client is used to interact with MCP tools.
type Client struct {
	c *client.Client
}

// New creates a new Client connected to serverURL.
func New(serverURL string) (*Client, error) {
	transport, err := transport.NewStreamableHTTP(serverURL)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	c := client.NewClient(transport)

	_, err = c.Initialize(context.Background(), mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
		},
	})
	if err != nil {
		return nil, Error.Wrap(err)
	}

	return &Client{c: c}, nil
}

// Close shuts down the client's transport.
func (c *Client) Close() error {
	return Error.Wrap(c.c.Close())
}

// ListTools returns the names of all tools in the server's catalog.
func (c *Client) ListTools(ctx context.Context) ([]string, error) {
	result, err := c.c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	return names, nil
}

// ListResources returns the URIs of all resources the server advertises.
func (c *Client) ListResources(ctx context.Context) ([]string, error) {
	result, err := c.c.ListResources(ctx, mcp.ListResourcesRequest{})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	uris := make([]string, 0, len(result.Resources))
	for _, resource := range result.Resources {
		uris = append(uris, resource.URI)
	}
	return uris, nil
}

// ListBuckets calls the list-buckets tool. Each returned line describes one
// bucket.
func (c *Client) ListBuckets(ctx context.Context) ([]string, error) {
	return c.callTool(ctx, tools.ToolListBuckets, nil)
}

// ExistsBucket calls the exists-bucket tool.
func (c *Client) ExistsBucket(ctx context.Context, bucket string) (bool, error) {
	messages, err := c.callTool(ctx, tools.ToolExistsBucket, struct {
		BucketName string `json:"bucket_name"`
	}{bucket})
	if err != nil {
		return false, err
	}
	if len(messages) != 1 {
		return false, Error.New("unexpected response: %v", messages)
	}
	return !strings.Contains(messages[0], "not exists"), nil
}

// CreateBucket calls the create-bucket tool.
func (c *Client) CreateBucket(ctx context.Context, bucket string) error {
	_, err := c.callTool(ctx, tools.ToolCreateBucket, struct {
		BucketName string `json:"bucket_name"`
	}{bucket})
	return err
}

// DeleteBucket calls the delete-bucket tool.
func (c *Client) DeleteBucket(ctx context.Context, bucket string) error {
	_, err := c.callTool(ctx, tools.ToolDeleteBucket, struct {
		BucketName string `json:"bucket_name"`
	}{bucket})
	return err
}

// ListObjectsRequest is a type of request to list objects in a bucket.
// Omitted optional fields are not sent to the server.
type ListObjectsRequest struct {
	BucketName        string `json:"bucket_name"`
	Prefix            string `json:"prefix,omitempty"`
	Delimiter         string `json:"delimiter,omitempty"`
	MaxKeys           int    `json:"max_keys,omitempty"`
	ContinuationToken string `json:"continuation_token,omitempty"`
	StartAfter        string `json:"start_after,omitempty"`
}

// ListObjects calls the list-objects tool. Each returned line describes one
// object.
func (c *Client) ListObjects(ctx context.Context, req ListObjectsRequest) ([]string, error) {
	return c.callTool(ctx, tools.ToolListObjects, req)
}

// GetObjectRequest is a type of request to download an object to a local file.
type GetObjectRequest struct {
	BucketName string `json:"bucket_name"`
	Key        string `json:"key"`
	VersionID  string `json:"version_id,omitempty"`
	Path       string `json:"path"`
}

// GetObject calls the get-object tool.
func (c *Client) GetObject(ctx context.Context, req GetObjectRequest) error {
	_, err := c.callTool(ctx, tools.ToolGetObject, req)
	return err
}

// PutObjectRequest is a type of request to upload a local file as an object.
type PutObjectRequest struct {
	BucketName string `json:"bucket_name"`
	Key        string `json:"key"`
	Path       string `json:"path"`
}

// PutObject calls the put-object tool.
func (c *Client) PutObject(ctx context.Context, req PutObjectRequest) error {
	_, err := c.callTool(ctx, tools.ToolPutObject, req)
	return err
}

// DeleteObjectRequest is a type of request to delete an object.
type DeleteObjectRequest struct {
	BucketName string `json:"bucket_name"`
	Key        string `json:"key"`
	VersionID  string `json:"version_id,omitempty"`
}

// DeleteObject calls the delete-object tool.
func (c *Client) DeleteObject(ctx context.Context, req DeleteObjectRequest) error {
	_, err := c.callTool(ctx, tools.ToolDeleteObject, req)
	return err
}

// GetObjectMetadataRequest is a type of request to get object metadata.
type GetObjectMetadataRequest struct {
	BucketName string `json:"bucket_name"`
	Key        string `json:"key"`
	VersionID  string `json:"version_id,omitempty"`
}

// GetObjectMetadata calls the get-object-metadata tool and returns the
// metadata description line.
func (c *Client) GetObjectMetadata(ctx context.Context, req GetObjectMetadataRequest) (string, error) {
	messages, err := c.callTool(ctx, tools.ToolGetObjectMetadata, req)
	if err != nil {
		return "", err
	}
	if len(messages) != 1 {
		return "", Error.New("unexpected response: %v", messages)
	}
	return messages[0], nil
}

func (c *Client) callTool(ctx context.Context, name string, req any) ([]string, error) {
	args := make(map[string]any)
	if req != nil {
		jsonData, err := json.Marshal(req)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		if err := json.Unmarshal(jsonData, &args); err != nil {
			return nil, Error.Wrap(err)
		}
	}

	r, err := c.c.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		return nil, Error.Wrap(err)
	}

	var messages []string
	for _, content := range r.Content {
		if text, ok := content.(mcp.TextContent); ok {
			messages = append(messages, text.Text)
		}
	}

	if r.IsError {
		return nil, Error.New("tool call failed: %s", strings.Join(messages, "; "))
	}

	return messages, nil
}
