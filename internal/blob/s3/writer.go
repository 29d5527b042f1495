package s3blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jscomlabs/contactd/internal/domain"
)

// multipartThreshold is the part size used by the concurrent uploader for
// large objects such as export bundles.
const multipartThreshold = 10 * 1024 * 1024

// Writer stores objects in the configured bucket. It satisfies
// domain.BlobWriter.
type Writer struct {
	client *Client
}

var _ domain.BlobWriter = (*Writer)(nil)

// NewWriter creates a Writer backed by the given client.
func NewWriter(client *Client) *Writer {
	return &Writer{client: client}
}

// Put uploads a single object. Intended for small payloads; use
// PutMultipart for anything that may exceed a few megabytes.
func (w *Writer) Put(ctx context.Context, path string, r io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(w.client.bucket),
		Key:    aws.String(path),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := w.client.s3.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3blob: put %s: %w", path, err)
	}
	return nil
}

// PutMultipart uploads an object of unknown or large size using the SDK's
// concurrent multipart uploader.
func (w *Writer) PutMultipart(ctx context.Context, path string, r io.Reader, contentType string) error {
	uploader := manager.NewUploader(w.client.s3, func(u *manager.Uploader) {
		u.PartSize = multipartThreshold
	})

	input := &s3.PutObjectInput{
		Bucket: aws.String(w.client.bucket),
		Key:    aws.String(path),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("s3blob: multipart put %s: %w", path, err)
	}
	return nil
}
