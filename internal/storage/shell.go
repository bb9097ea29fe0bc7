package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Maksimka7878/gorod/internal/cache"
)

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// Prefix is the key prefix the shell artifacts live under.
	Prefix string
}

func LoadS3ConfigFromEnv() (S3Config, error) {
	cfg := S3Config{
		Endpoint:  strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		Region:    strings.TrimSpace(os.Getenv("S3_REGION")),
		Bucket:    strings.TrimSpace(os.Getenv("S3_BUCKET")),
		AccessKey: strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
		SecretKey: strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
		Prefix:    strings.TrimSpace(os.Getenv("S3_SHELL_PREFIX")),
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "shell"
	}
	useSSL := strings.TrimSpace(os.Getenv("S3_USE_SSL"))
	if useSSL == "" {
		cfg.UseSSL = false
	} else {
		b, err := strconv.ParseBool(useSSL)
		if err != nil {
			return S3Config{}, fmt.Errorf("invalid S3_USE_SSL: %w", err)
		}
		cfg.UseSSL = b
	}

	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return S3Config{}, errors.New("missing required S3 env: S3_ENDPOINT, S3_BUCKET, S3_ACCESS_KEY, S3_SECRET_KEY")
	}
	// Region can be empty for MinIO.
	return cfg, nil
}

// ShellStore serves the application shell out of the artifacts bucket.
// The build pipeline uploads each release under <prefix>/, together with a
// manifest.json listing the asset paths to precache.
type ShellStore struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewShellStore(cfg S3Config) (*ShellStore, error) {
	cl, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	return &ShellStore{client: cl, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

// Manifest returns the asset paths to precache for the current release.
func (s *ShellStore) Manifest(ctx context.Context) ([]string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key("manifest.json"), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch shell manifest: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read shell manifest: %w", err)
	}

	var assets []string
	if err := json.Unmarshal(data, &assets); err != nil {
		return nil, fmt.Errorf("decode shell manifest: %w", err)
	}
	return assets, nil
}

// Fetch loads one shell asset as a cacheable entry.
func (s *ShellStore) Fetch(ctx context.Context, name string) (*cache.Entry, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch shell asset %s: %w", name, err)
	}
	defer obj.Close()

	stat, err := obj.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat shell asset %s: %w", name, err)
	}

	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read shell asset %s: %w", name, err)
	}

	header := map[string][]string{}
	if stat.ContentType != "" {
		header["Content-Type"] = []string{stat.ContentType}
	}
	if stat.ETag != "" {
		header["Etag"] = []string{stat.ETag}
	}
	if !stat.LastModified.IsZero() {
		header["Last-Modified"] = []string{stat.LastModified.UTC().Format(time.RFC1123)}
	}

	return &cache.Entry{
		URL:    name,
		Status: 200,
		Header: header,
		Body:   body,
	}, nil
}

func (s *ShellStore) key(name string) string {
	return s.prefix + "/" + strings.TrimPrefix(name, "/")
}
