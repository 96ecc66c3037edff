// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/mark3labs/mcp-go/mcp"
)

// resourceScheme prefixes every bucket resource URI.
const resourceScheme = "s3://"

// BucketResources lists every visible bucket as an MCP resource of the form
// s3://{bucket}.
func (t *Tools) BucketResources(ctx context.Context) (_ []mcp.Resource, err error) {
	defer mon.Task()(&ctx)(&err)

	buckets, err := t.client.ListBuckets(ctx)
	if err != nil {
		return nil, err
	}

	resources := make([]mcp.Resource, 0, len(buckets))
	for _, bucket := range buckets {
		name := aws.ToString(bucket.Name)
		resources = append(resources, mcp.NewResource(
			resourceScheme+name,
			fmt.Sprintf("Bucket: %s", name),
			mcp.WithResourceDescription(fmt.Sprintf("Data in bucket: %s", name)),
			mcp.WithMIMEType("text/plain"),
		))
	}
	return resources, nil
}

// ReadBucketResource serves reads of s3://{bucket} resources.
func (t *Tools) ReadBucketResource(ctx context.Context, request mcp.ReadResourceRequest) (_ []mcp.ResourceContents, err error) {
	defer mon.Task()(&ctx)(&err)

	name := strings.TrimPrefix(request.Params.URI, resourceScheme)
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Data in bucket: %s", name),
		},
	}, nil
}
