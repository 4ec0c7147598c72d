package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"git.home.luguber.info/inful/skelbuilder/internal/config"
	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
)

// User metadata keys. S3 returns them canonicalized, so lookups ignore case.
const (
	metaDigest     = "Digest"
	metaCreatedAt  = "Created-At"
	metaLastAccess = "Last-Access"
	metaDownloads  = "Downloads"
)

// MinIOStore keeps artifacts in an S3-compatible bucket under a prefix.
// PutObject only makes an object visible once fully uploaded, which gives
// the same publish guarantee as FSStore's rename.
type MinIOStore struct {
	client *minio.Client
	bucket string
	prefix string
	now    Clock
}

// NewMinIOStore connects to the endpoint and creates the bucket if missing.
func NewMinIOStore(ctx context.Context, cfg config.MinIOConfig, now Clock) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid minio endpoint").
			WithContext("endpoint", cfg.Endpoint).Build()
	}
	s, err := NewMinIOStoreWithClient(client, cfg.Bucket, cfg.Prefix, now)
	if err != nil {
		return nil, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewMinIOStoreWithClient wraps an existing client.
func NewMinIOStoreWithClient(client *minio.Client, bucket, prefix string, now Clock) (*MinIOStore, error) {
	if client == nil {
		return nil, errors.ConfigError("minio client is required").Build()
	}
	if bucket == "" {
		return nil, errors.ConfigError("minio bucket is required").Build()
	}
	if now == nil {
		now = time.Now
	}
	return &MinIOStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), now: now}, nil
}

func (s *MinIOStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return s.failure(err, "check bucket", "")
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return s.failure(err, "create bucket", "")
	}
	return nil
}

func (s *MinIOStore) key(id string) string {
	return path.Join(s.prefix, id+artifactExt)
}

func (s *MinIOStore) idFromKey(key string) (string, bool) {
	rel := strings.TrimPrefix(strings.TrimPrefix(key, s.prefix), "/")
	id, ok := strings.CutSuffix(rel, artifactExt)
	return id, ok && ValidID(id)
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

func (s *MinIOStore) failure(err error, op, id string) error {
	b := errors.WrapError(err, errors.CategoryStore, op+" failed").
		Retryable().
		WithContext("bucket", s.bucket)
	if id != "" {
		b = b.WithContext("id", id)
	}
	return b.Build()
}

func (s *MinIOStore) Write(ctx context.Context, id string, data []byte, digest string) error {
	if !ValidID(id) {
		return invalidID(id)
	}
	ok, err := s.Exists(ctx, id)
	if err != nil {
		return err
	}
	if ok {
		return alreadyExists(id)
	}
	now := s.now().UTC()
	_, err = s.client.PutObject(ctx, s.bucket, s.key(id), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/zip",
		UserMetadata: encodeMeta(Info{
			Digest: digest, CreatedAt: now, LastAccess: now,
		}),
	})
	if err != nil {
		return s.failure(err, "put artifact", id)
	}
	return nil
}

func (s *MinIOStore) Open(ctx context.Context, id string) (io.ReadCloser, Info, error) {
	info, err := s.Stat(ctx, id)
	if err != nil {
		return nil, Info{}, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(id), minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, Info{}, notFound(id)
		}
		return nil, Info{}, s.failure(err, "get artifact", id)
	}
	info.LastAccess = s.now().UTC()
	if err := s.replaceMeta(ctx, info); err != nil {
		_ = obj.Close()
		return nil, Info{}, err
	}
	return obj, info, nil
}

func (s *MinIOStore) Delete(ctx context.Context, id string) error {
	if !ValidID(id) {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, s.key(id), minio.RemoveObjectOptions{}); err != nil && !isNoSuchKey(err) {
		return s.failure(err, "remove artifact", id)
	}
	return nil
}

func (s *MinIOStore) Exists(ctx context.Context, id string) (bool, error) {
	if !ValidID(id) {
		return false, nil
	}
	_, err := s.client.StatObject(ctx, s.bucket, s.key(id), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	return false, s.failure(err, "stat artifact", id)
}

func (s *MinIOStore) Stat(ctx context.Context, id string) (Info, error) {
	if !ValidID(id) {
		return Info{}, notFound(id)
	}
	oi, err := s.client.StatObject(ctx, s.bucket, s.key(id), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return Info{}, notFound(id)
		}
		return Info{}, s.failure(err, "stat artifact", id)
	}
	return decodeMeta(id, oi), nil
}

func (s *MinIOStore) List(ctx context.Context) ([]Info, error) {
	prefix := s.prefix
	if prefix != "" {
		prefix += "/"
	}
	var out []Info
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, s.failure(obj.Err, "list artifacts", "")
		}
		id, ok := s.idFromKey(obj.Key)
		if !ok {
			continue
		}
		info, err := s.Stat(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MinIOStore) MarkDownloaded(ctx context.Context, id string) (Info, error) {
	info, err := s.Stat(ctx, id)
	if err != nil {
		return Info{}, err
	}
	info.Downloads++
	info.LastAccess = s.now().UTC()
	if err := s.replaceMeta(ctx, info); err != nil {
		return Info{}, err
	}
	return info, nil
}

func (s *MinIOStore) Close() error { return nil }

// replaceMeta rewrites user metadata with a server-side self-copy.
func (s *MinIOStore) replaceMeta(ctx context.Context, info Info) error {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{
			Bucket:          s.bucket,
			Object:          s.key(info.ID),
			ReplaceMetadata: true,
			UserMetadata:    encodeMeta(info),
		},
		minio.CopySrcOptions{Bucket: s.bucket, Object: s.key(info.ID)},
	)
	if err != nil {
		if isNoSuchKey(err) {
			return notFound(info.ID)
		}
		return s.failure(err, "update metadata", info.ID)
	}
	return nil
}

func encodeMeta(info Info) map[string]string {
	return map[string]string{
		metaDigest:     info.Digest,
		metaCreatedAt:  info.CreatedAt.UTC().Format(time.RFC3339Nano),
		metaLastAccess: info.LastAccess.UTC().Format(time.RFC3339Nano),
		metaDownloads:  strconv.Itoa(info.Downloads),
	}
}

func decodeMeta(id string, oi minio.ObjectInfo) Info {
	get := func(key string) string {
		for k, v := range oi.UserMetadata {
			if strings.EqualFold(k, key) {
				return v
			}
		}
		return ""
	}
	info := Info{ID: id, Size: oi.Size, Digest: get(metaDigest)}
	info.CreatedAt, _ = time.Parse(time.RFC3339Nano, get(metaCreatedAt))
	info.LastAccess, _ = time.Parse(time.RFC3339Nano, get(metaLastAccess))
	info.Downloads, _ = strconv.Atoi(get(metaDownloads))
	if info.CreatedAt.IsZero() {
		info.CreatedAt = oi.LastModified.UTC()
	}
	if info.LastAccess.IsZero() {
		info.LastAccess = info.CreatedAt
	}
	return info
}
