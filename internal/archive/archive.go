// Package archive persists world snapshots to S3-compatible storage so a
// session can be restored or inspected offline. One object per document
// type, bucket per world.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

type Store struct {
	client *minio.Client
}

func NewStore(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create archive client: %w", err)
	}
	return &Store{client: client}, nil
}

func bucketForWorld(worldID string) string {
	return "worlds-" + worldID
}

func (s *Store) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		return s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
	}
	return nil
}

// SaveSnapshot writes every collection's contents for the world. Keys
// are "<DocumentType>.json".
func (s *Store) SaveSnapshot(ctx context.Context, worldID string, snapshot map[string][]map[string]interface{}) error {
	bucket := bucketForWorld(worldID)
	if err := s.ensureBucket(ctx, bucket); err != nil {
		return fmt.Errorf("ensure bucket %s: %w", bucket, err)
	}
	for documentType, contents := range snapshot {
		data, err := json.Marshal(contents)
		if err != nil {
			return fmt.Errorf("marshal %s snapshot: %w", documentType, err)
		}
		_, err = s.client.PutObject(ctx, bucket, documentType+".json",
			bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: "application/json; charset=utf-8"})
		if err != nil {
			return fmt.Errorf("store %s snapshot: %w", documentType, err)
		}
	}
	return nil
}

// LoadSnapshot reads back the stored contents for the named document
// types. Types never archived are simply absent from the result.
func (s *Store) LoadSnapshot(ctx context.Context, worldID string, documentTypes []string) (map[string][]map[string]interface{}, error) {
	bucket := bucketForWorld(worldID)
	snapshot := make(map[string][]map[string]interface{})
	for _, documentType := range documentTypes {
		obj, err := s.client.GetObject(ctx, bucket, documentType+".json", minio.GetObjectOptions{})
		if err != nil {
			continue
		}
		data, err := io.ReadAll(obj)
		obj.Close()
		if err != nil {
			continue
		}
		var contents []map[string]interface{}
		if err := json.Unmarshal(data, &contents); err != nil {
			return nil, fmt.Errorf("decode %s snapshot: %w", documentType, err)
		}
		snapshot[documentType] = contents
	}
	return snapshot, nil
}
