// Package storage uploads listing images to an S3-compatible bucket (AWS S3
// or MinIO) and returns their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"listing-portal/internal/apperr"
	"listing-portal/internal/breaker"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ObjectAPI is the subset of the S3 client the uploader calls.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Swapped in tests.
var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
)

// Options configures an Uploader.
type Options struct {
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	Prefix        string
	MaxFileBytes  int64
	MaxFiles      int
	AllowedTypes  []string
}

// File is one upload candidate.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Uploader stores images in a bucket.
type Uploader struct {
	client   ObjectAPI
	opts     Options
	allowed  map[string]string
	breaker  *breaker.CircuitBreaker
	now      func() time.Time
	parallel int
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// NewS3Uploader builds an uploader against the configured endpoint with
// static credentials. An empty endpoint targets AWS itself.
func NewS3Uploader(ctx context.Context, opts Options, cb *breaker.CircuitBreaker) (*Uploader, error) {
	if opts.Bucket == "" {
		return nil, errors.New("storage: bucket is required")
	}
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewUploader(client, opts, cb), nil
}

// NewUploader wraps an existing client.
func NewUploader(client ObjectAPI, opts Options, cb *breaker.CircuitBreaker) *Uploader {
	allowed := make(map[string]string, len(opts.AllowedTypes))
	for _, t := range opts.AllowedTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		allowed[t] = extensions[t]
	}
	if opts.PublicBaseURL == "" {
		opts.PublicBaseURL = defaultBaseURL(opts)
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	if cb == nil {
		cb = breaker.NewCircuitBreaker("storage", 5, time.Minute)
	}
	return &Uploader{
		client:   client,
		opts:     opts,
		allowed:  allowed,
		breaker:  cb,
		now:      time.Now,
		parallel: 4,
	}
}

func defaultBaseURL(opts Options) string {
	if opts.Endpoint != "" {
		return strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
}

// storageKey returns prefix/yyyy/m/d/<uuid><ext>.
func (u *Uploader) storageKey(ext string) string {
	d := u.now().UTC()
	key := fmt.Sprintf("%d/%d/%d/%v%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
	if u.opts.Prefix != "" {
		key = strings.Trim(u.opts.Prefix, "/") + "/" + key
	}
	return key
}

// URLFor returns the public URL of key.
func (u *Uploader) URLFor(key string) string {
	return u.opts.PublicBaseURL + "/" + key
}

// KeyFromURL reverses URLFor. URLs outside this bucket are not ours.
func (u *Uploader) KeyFromURL(url string) (string, bool) {
	prefix := u.opts.PublicBaseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := path.Clean(strings.TrimPrefix(url, prefix))
	if key == "." || strings.HasPrefix(key, "..") {
		return "", false
	}
	return key, true
}

// Validate checks a single file against the type and size limits.
func (u *Uploader) Validate(f File) error {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(f.ContentType, ";", 2)[0]))
	if _, ok := u.allowed[ct]; !ok {
		return apperr.ValidationFields("invalid upload", map[string]string{
			f.Name: "unsupported file type " + ct,
		})
	}
	if u.opts.MaxFileBytes > 0 && f.Size > u.opts.MaxFileBytes {
		return apperr.ValidationFields("invalid upload", map[string]string{
			f.Name: fmt.Sprintf("exceeds %d bytes", u.opts.MaxFileBytes),
		})
	}
	return nil
}

// Upload stores one file and returns its public URL.
func (u *Uploader) Upload(ctx context.Context, f File) (string, error) {
	if err := u.Validate(f); err != nil {
		return "", err
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(f.ContentType, ";", 2)[0]))
	ext := u.allowed[ct]
	if ext == "" {
		ext = strings.ToLower(path.Ext(f.Name))
	}
	key := u.storageKey(ext)

	body, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("storage: open %s: %w", f.Name, err)
	}
	defer body.Close()

	err = u.breaker.Do(func() error {
		_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(u.opts.Bucket),
			Key:           aws.String(key),
			Body:          body,
			ContentType:   aws.String(ct),
			ContentLength: aws.Int64(f.Size),
		})
		return err
	})
	if err != nil {
		return "", u.wrap("put", key, err)
	}
	return u.URLFor(key), nil
}

// UploadBatch stores files concurrently. If any upload fails the files
// already stored by this batch are deleted and the first error is returned.
func (u *Uploader) UploadBatch(ctx context.Context, files []File) ([]string, error) {
	if len(files) == 0 {
		return nil, apperr.Validation("no files uploaded")
	}
	if u.opts.MaxFiles > 0 && len(files) > u.opts.MaxFiles {
		return nil, apperr.Validation(fmt.Sprintf("at most %d files per upload", u.opts.MaxFiles))
	}
	for _, f := range files {
		if err := u.Validate(f); err != nil {
			return nil, err
		}
	}

	urls := make([]string, len(files))
	var mu sync.Mutex
	var stored []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.parallel)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			url, err := u.Upload(gctx, f)
			if err != nil {
				return err
			}
			urls[i] = url
			mu.Lock()
			stored = append(stored, url)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Rollback outlives a cancelled request.
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if derr := u.DeleteURLs(cleanupCtx, stored); derr != nil {
			err = errors.Join(err, derr)
		}
		return nil, err
	}
	return urls, nil
}

// Delete removes the object behind url. Foreign URLs are ignored.
func (u *Uploader) Delete(ctx context.Context, url string) error {
	key, ok := u.KeyFromURL(url)
	if !ok {
		return nil
	}
	err := u.breaker.Do(func() error {
		_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(u.opts.Bucket),
			Key:    aws.String(key),
		})
		return err
	})
	if err != nil {
		return u.wrap("delete", key, err)
	}
	return nil
}

// DeleteURLs deletes every url and joins the failures.
func (u *Uploader) DeleteURLs(ctx context.Context, urls []string) error {
	var errs []error
	for _, url := range urls {
		if err := u.Delete(ctx, url); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (u *Uploader) wrap(op, key string, err error) error {
	if errors.Is(err, breaker.ErrOpen) {
		return &apperr.Error{Kind: apperr.KindUnavailable, Message: "storage temporarily unavailable", Err: err}
	}
	return fmt.Errorf("storage: %s %s: %w", op, key, err)
}
