package evidence

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/ludoarena/match-engine/internal/config"
	"github.com/ludoarena/match-engine/internal/match"
)

// MaxUploadSize caps a single screenshot.
const MaxUploadSize = 8 << 20

// Store persists a result screenshot and returns the reference recorded on
// the claim.
type Store interface {
	Save(ctx context.Context, matchID, userID uuid.UUID, filename, contentType string, r io.Reader) (string, error)
}

var allowedExt = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}

// ObjectKey builds a collision-free key like
// "evidence/<match>/<user>-<random>.png".
func ObjectKey(matchID, userID uuid.UUID, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", fmt.Errorf("%w: unsupported screenshot type %q", match.ErrValidation, ext)
	}
	return path.Join("evidence", matchID.String(), fmt.Sprintf("%s-%s%s", userID, uuid.NewString()[:8], ext)), nil
}

// LocalStore writes screenshots below a directory and serves them from
// baseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create evidence dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Save(ctx context.Context, matchID, userID uuid.UUID, filename, contentType string, r io.Reader) (string, error) {
	key, err := ObjectKey(matchID, userID, filename)
	if err != nil {
		return "", err
	}

	destPath := filepath.Join(s.dir, filepath.FromSlash(strings.TrimPrefix(key, "evidence/")))
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return "", err
	}

	dst, err := os.Create(destPath)
	if err != nil {
		return "", err
	}

	_, err = io.Copy(dst, io.LimitReader(r, MaxUploadSize))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

// R2Store uploads screenshots to a Cloudflare R2 bucket through the S3 API.
type R2Store struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string
}

func NewR2Store(ctx context.Context, cfg config.R2Config) (*R2Store, error) {
	if cfg.AccountID == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("R2 account id and bucket are required")
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	cdnBaseURL := cfg.CDNBaseURL
	if cdnBaseURL == "" {
		cdnBaseURL = endpoint
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &R2Store{client: client, bucket: cfg.Bucket, cdnBaseURL: strings.TrimRight(cdnBaseURL, "/")}, nil
}

func (s *R2Store) Save(ctx context.Context, matchID, userID uuid.UUID, filename, contentType string, r io.Reader) (string, error) {
	key, err := ObjectKey(matchID, userID, filename)
	if err != nil {
		return "", err
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, io.LimitReader(r, MaxUploadSize)); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return fmt.Sprintf("%s/%s", s.cdnBaseURL, key), nil
}
