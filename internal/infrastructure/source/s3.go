package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	infraconfig "github.com/erp/sharepointsync/internal/infrastructure/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// getPresigner is the part of s3.PresignClient used to mint download links
type getPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3FolderSource treats common prefixes under the root as folders. It is meant for a
// bucket mirror of the document library, and works with any S3-compatible store.
type S3FolderSource struct {
	client            s3.ListObjectsV2APIClient
	presigner         getPresigner
	bucket            string
	presignExpiration time.Duration
	maxConcurrency    int
	logger            *zap.Logger
}

// S3Option is a functional option for configuring S3FolderSource
type S3Option func(*S3FolderSource)

// WithS3Logger sets a custom logger
func WithS3Logger(logger *zap.Logger) S3Option {
	return func(s *S3FolderSource) {
		s.logger = logger
	}
}

// WithMaxConcurrency bounds how many folders are listed at once
func WithMaxConcurrency(n int) S3Option {
	return func(s *S3FolderSource) {
		s.maxConcurrency = n
	}
}

// withClients swaps the SDK clients, for tests
func withClients(client s3.ListObjectsV2APIClient, presigner getPresigner) S3Option {
	return func(s *S3FolderSource) {
		s.client = client
		s.presigner = presigner
	}
}

// NewS3FolderSource creates a source from storage configuration. Without an access key
// the SDK default credential chain is used.
func NewS3FolderSource(cfg *infraconfig.StorageConfig, opts ...S3Option) (*S3FolderSource, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	src := &S3FolderSource{
		bucket:            cfg.Bucket,
		presignExpiration: cfg.PresignExpiration,
		maxConcurrency:    4,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(src)
	}
	if src.presignExpiration == 0 {
		src.presignExpiration = 15 * time.Minute
	}
	if src.maxConcurrency < 1 {
		src.maxConcurrency = 1
	}
	if src.client != nil {
		return src, nil
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	if cfg.Endpoint != "" {
		if _, err := url.Parse(cfg.Endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	src.client = client
	src.presigner = s3.NewPresignClient(client)
	return src, nil
}

// ListFolders lists the prefixes directly under rootPath, each with its direct objects,
// sorted by name.
func (s *S3FolderSource) ListFolders(ctx context.Context, rootPath string) ([]sharepoint.RemoteFolder, error) {
	folders, err := s.listFolders(ctx, rootPath)
	if err != nil {
		return nil, sharepoint.NewSourceUnavailableError(rootPath, err)
	}
	return sharepoint.RequireFolders(rootPath, folders)
}

func (s *S3FolderSource) listFolders(ctx context.Context, rootPath string) ([]sharepoint.RemoteFolder, error) {
	rootPrefix := strings.Trim(rootPath, "/") + "/"

	var prefixes []string
	pager := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(rootPrefix),
		Delimiter: aws.String("/"),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list prefixes under %q: %w", rootPrefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			prefixes = append(prefixes, aws.ToString(cp.Prefix))
		}
	}
	sort.Strings(prefixes)

	folders := make([]sharepoint.RemoteFolder, len(prefixes))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.maxConcurrency)
	for i, prefix := range prefixes {
		eg.Go(func() error {
			files, err := s.listFiles(egCtx, prefix)
			if err != nil {
				return err
			}
			name := strings.TrimSuffix(strings.TrimPrefix(prefix, rootPrefix), "/")
			folders[i] = sharepoint.RemoteFolder{Name: name, Files: files}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return folders, nil
}

func (s *S3FolderSource) listFiles(ctx context.Context, prefix string) ([]sharepoint.RemoteFile, error) {
	var files []sharepoint.RemoteFile
	pager := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects under %q: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			// directory marker objects
			if strings.HasSuffix(key, "/") {
				continue
			}
			files = append(files, sharepoint.RemoteFile{
				Name:        strings.TrimPrefix(key, prefix),
				DownloadURL: objectRef(s.bucket, key),
			})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// LinkFor presigns an s3:// reference to an object in this bucket. Anything else is
// returned unchanged.
func (s *S3FolderSource) LinkFor(ctx context.Context, ref string) (string, error) {
	bucket, key, ok := parseObjectRef(ref)
	if !ok || bucket != s.bucket {
		return ref, nil
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignExpiration))
	if err != nil {
		return "", fmt.Errorf("presign %q: %w", key, err)
	}
	return req.URL, nil
}

// objectRef is the stored, non-expiring reference of an object: s3://bucket/key
func objectRef(bucket, key string) string {
	return objectRefScheme + bucket + "/" + key
}

const objectRefScheme = "s3://"

func parseObjectRef(ref string) (bucket, key string, ok bool) {
	rest, ok := strings.CutPrefix(ref, objectRefScheme)
	if !ok {
		return "", "", false
	}
	bucket, key, ok = strings.Cut(rest, "/")
	return bucket, key, ok && bucket != "" && key != ""
}

var (
	_ sharepoint.FolderSource   = (*S3FolderSource)(nil)
	_ sharepoint.DownloadLinker = (*S3FolderSource)(nil)
)
