// Package fileaccess resolves a cutout request's "file" parameter to a
// *fitsio.File, either off local disk or, for an s3:// reference, via
// ranged reads straight out of S3 - no local download of the whole
// object, since a cutout typically only touches a small window of it.
package fileaccess

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/bonimy/ibe/core/fitsio"
	"github.com/bonimy/ibe/core/ibeerr"
)

// Resolve opens ref as a *fitsio.File. A plain path is joined onto root
// and opened directly off local disk; an "s3://bucket/key" reference is
// opened via S3Reader instead. The returned close func must be called
// once the cutout has been streamed.
func Resolve(s3Api s3iface.S3API, root, ref string) (*fitsio.File, func() error, error) {
	if strings.HasPrefix(ref, "s3://") {
		bucket, key, err := splitS3URL(ref)
		if err != nil {
			return nil, nil, ibeerr.BadRequest(err)
		}
		if s3Api == nil {
			return nil, nil, ibeerr.Internalf("fileaccess: no S3 client configured for %s", ref)
		}
		r, err := NewS3Reader(s3Api, bucket, key)
		if err != nil {
			return nil, nil, err
		}
		f, err := fitsio.OpenReader(r, r.Size())
		if err != nil {
			return nil, nil, err
		}
		return f, func() error { return nil }, nil
	}

	path := filepath.Join(root, filepath.Clean("/"+ref))
	f, err := fitsio.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// S3Reader is an io.ReaderAt over a single S3 object, implemented with a
// ranged GetObject per read rather than downloading the whole object -
// the access pattern core/fitsio's header parse and windowed pixel reads
// need.
type S3Reader struct {
	api    s3iface.S3API
	bucket string
	key    string
	size   int64
}

// NewS3Reader HEADs the object to learn its size, then returns a reader
// ready for ranged GetObject calls.
func NewS3Reader(api s3iface.S3API, bucket, key string) (*S3Reader, error) {
	head, err := api.HeadObject(&s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, ibeerr.NotFound(bucket + "/" + key)
	}
	var size int64
	if head.ContentLength != nil {
		size = *head.ContentLength
	}
	return &S3Reader{api: api, bucket: bucket, key: key, size: size}, nil
}

// Size returns the object's total byte length, as reported by HeadObject.
func (r *S3Reader) Size() int64 {
	return r.size
}

// ReadAt satisfies io.ReaderAt with a single ranged GetObject call.
func (r *S3Reader) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	end := off + int64(len(p)) - 1
	out, err := r.api.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		return 0, ibeerr.Internal(err)
	}
	defer out.Body.Close()
	return io.ReadFull(out.Body, p)
}

// splitS3URL splits "s3://bucket/key" into its bucket and key parts.
func splitS3URL(url string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(url, "s3://")
	if trimmed == url {
		return "", "", fmt.Errorf("not a valid s3:// url: %v", url)
	}
	slash := strings.Index(trimmed, "/")
	if slash <= 0 {
		return "", "", fmt.Errorf("s3:// url has no key: %v", url)
	}
	return trimmed[:slash], trimmed[slash+1:], nil
}
