package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/gosimple/slug"

	"github.com/digkill/writory/internal/apperr"
)

type Config struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
	UsePathStyle  bool
	Prefix        string
	MaxBytes      int64
}

// objectAPI is the subset of the S3 client the uploader calls.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type Uploader struct {
	cfg    Config
	client objectAPI
}

// File is one participant upload. Group keeps objects of different entries apart
// when a submitter reuses a title.
type File struct {
	Folder      string
	Group       string
	Email       string
	Title       string
	Index       int
	Filename    string
	ContentType string
	Data        []byte
}

type Kind string

const (
	KindPoem  Kind = "poem"
	KindPhoto Kind = "photo"
)

var allowedExt = map[Kind]map[string]bool{
	KindPoem:  {".pdf": true, ".doc": true, ".docx": true, ".txt": true},
	KindPhoto: {".jpg": true, ".jpeg": true, ".png": true, ".webp": true},
}

func NewUploader(cfg Config) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 region is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3 credentials are required")
	}
	if cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("s3 public base url is required")
	}

	options := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		options.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return newUploader(cfg, s3.New(options)), nil
}

func newUploader(cfg Config, client objectAPI) *Uploader {
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &Uploader{cfg: cfg, client: client}
}

// Validate checks the extension and size of an upload before anything is stored.
func (u *Uploader) Validate(kind Kind, filename string, size int64) error {
	ext := strings.ToLower(path.Ext(filename))
	if !allowedExt[kind][ext] {
		return fmt.Errorf("%s file type %q is not allowed: %w", kind, ext, apperr.ErrValidation)
	}
	if size == 0 {
		return fmt.Errorf("%s file is empty: %w", kind, apperr.ErrValidation)
	}
	if u.cfg.MaxBytes > 0 && size > u.cfg.MaxBytes {
		return fmt.Errorf("%s file exceeds %d MB: %w", kind, u.cfg.MaxBytes>>20, apperr.ErrValidation)
	}
	return nil
}

// EnsureFolder creates the folder marker object when it does not exist yet.
func (u *Uploader) EnsureFolder(ctx context.Context, name string) error {
	key := u.folderKey(name) + "/"
	_, err := u.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("lookup folder %q: %w", name, err)
	}
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(nil),
		ContentType: aws.String("application/x-directory"),
	})
	if err != nil {
		return fmt.Errorf("create folder %q: %w", name, err)
	}
	return nil
}

// Upload stores the file with a public-read ACL and returns its public URL.
func (u *Uploader) Upload(ctx context.Context, f File) (string, error) {
	if len(f.Data) == 0 {
		return "", fmt.Errorf("no data to upload")
	}
	ext := strings.ToLower(path.Ext(f.Filename))
	contentType := f.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			contentType = byExt
		} else {
			contentType = "application/octet-stream"
		}
	}

	key := path.Join(u.folderKey(f.Folder), f.Group, ObjectName(f.Email, f.Title, f.Index, ext))
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(f.Data),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("upload to s3: %w", err)
	}
	return u.publicURL(key), nil
}

// Delete removes an object previously returned by Upload.
func (u *Uploader) Delete(ctx context.Context, publicURL string) error {
	key, ok := u.keyFromURL(publicURL)
	if !ok {
		return fmt.Errorf("url %q is not served by this bucket", publicURL)
	}
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete from s3: %w", err)
	}
	return nil
}

// ObjectName builds "{emailLocalPart}_{title}{ext}", adding "_{index}" for the
// second and later poems of a group.
func ObjectName(email, title string, index int, ext string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	local = sanitize(local)
	if local == "" {
		local = "participant"
	}
	name := local
	if t := sanitize(title); t != "" {
		name += "_" + t
	}
	if index > 1 {
		name += fmt.Sprintf("_%d", index)
	}
	return name + ext
}

// isNotFound also accepts the bare "NotFound" API error some S3-compatible
// stores return for HEAD requests.
func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey")
}

func sanitize(s string) string {
	return strings.ReplaceAll(slug.Make(s), "-", "_")
}

func (u *Uploader) folderKey(name string) string {
	if u.cfg.Prefix == "" {
		return name
	}
	return u.cfg.Prefix + "/" + name
}

func (u *Uploader) publicURL(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return u.cfg.PublicBaseURL + "/" + strings.Join(segments, "/")
}

func (u *Uploader) keyFromURL(publicURL string) (string, bool) {
	rest, ok := strings.CutPrefix(publicURL, u.cfg.PublicBaseURL+"/")
	if !ok || rest == "" {
		return "", false
	}
	key, err := url.PathUnescape(rest)
	if err != nil {
		return "", false
	}
	return key, true
}
