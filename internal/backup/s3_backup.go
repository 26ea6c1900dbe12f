// Package backup periodically archives the audit, schedule and margin
// SQLite databases and uploads them to an S3-compatible bucket (AWS S3
// or Cloudflare R2), the same tar.gz-and-upload shape as the original
// archival job it was adapted from.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3API is the narrow surface the backup job calls on an S3 client.
// Satisfied by *s3.Client.
type S3API interface {
	manager.UploadAPIClient
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Metadata describes one uploaded archive.
type Metadata struct {
	Timestamp time.Time      `json:"timestamp"`
	Databases []DatabaseInfo `json:"databases"`
}

// DatabaseInfo describes one database file inside an archive.
type DatabaseInfo struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// Info is a previously uploaded backup, as returned by List.
type Info struct {
	Key       string
	Timestamp time.Time
	SizeBytes int64
}

// Job archives a fixed set of SQLite files and ships them to a bucket.
// DBPaths maps a friendly database name ("audit", "schedule", "margin")
// to its file path on disk.
type Job struct {
	Client        S3API
	Bucket        string
	Prefix        string // object key prefix, e.g. "sentinel-backup-"
	DBPaths       map[string]string
	RetentionDays int // 0 keeps every backup
	Log           zerolog.Logger
}

// Run builds a tar.gz of every configured database plus a metadata.json
// and uploads it as one object.
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()
	names := make([]string, 0, len(j.DBPaths))
	for name := range j.DBPaths {
		names = append(names, name)
	}
	sort.Strings(names)

	meta := Metadata{Timestamp: start.UTC()}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, name := range names {
		path := j.DBPaths[name]
		info, checksum, err := addFileToArchive(tw, path, name+".db")
		if err != nil {
			return fmt.Errorf("backup: archive %s: %w", name, err)
		}
		meta.Databases = append(meta.Databases, DatabaseInfo{Name: name, SizeBytes: info, Checksum: checksum})
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("backup: marshal metadata: %w", err)
	}
	if err := writeBytesToArchive(tw, metaJSON, "backup-metadata.json"); err != nil {
		return fmt.Errorf("backup: write metadata: %w", err)
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("backup: close tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("backup: close gzip: %w", err)
	}

	key := fmt.Sprintf("%s%s.tar.gz", j.Prefix, start.Format("2006-01-02-150405"))
	uploader := manager.NewUploader(j.Client)
	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(j.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(buf.Bytes()),
	}); err != nil {
		return fmt.Errorf("backup: upload %s: %w", key, err)
	}

	j.Log.Info().Str("key", key).Int("size_kb", buf.Len()/1024).Dur("duration", time.Since(start)).Msg("database backup uploaded")
	return nil
}

// List returns every backup object under Prefix, newest first.
func (j *Job) List(ctx context.Context) ([]Info, error) {
	out, err := j.Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(j.Bucket), Prefix: aws.String(j.Prefix)})
	if err != nil {
		return nil, fmt.Errorf("backup: list objects: %w", err)
	}

	backups := make([]Info, 0, len(out.Contents))
	for _, obj := range out.Contents {
		if obj.Key == nil {
			continue
		}
		ts := strings.TrimSuffix(strings.TrimPrefix(*obj.Key, j.Prefix), ".tar.gz")
		t, err := time.Parse("2006-01-02-150405", ts)
		if err != nil {
			continue
		}
		var size int64
		if obj.Size != nil {
			size = *obj.Size
		}
		backups = append(backups, Info{Key: *obj.Key, Timestamp: t, SizeBytes: size})
	}
	sort.Slice(backups, func(i, k int) bool { return backups[i].Timestamp.After(backups[k].Timestamp) })
	return backups, nil
}

// Rotate deletes backups older than RetentionDays, always keeping at
// least the 3 newest regardless of age.
func (j *Job) Rotate(ctx context.Context) error {
	if j.RetentionDays <= 0 {
		return nil
	}
	const minKeep = 3
	backups, err := j.List(ctx)
	if err != nil {
		return err
	}
	if len(backups) <= minKeep {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -j.RetentionDays)
	deleted := 0
	for i, b := range backups {
		if i < minKeep || !b.Timestamp.Before(cutoff) {
			continue
		}
		if _, err := j.Client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(j.Bucket), Key: aws.String(b.Key)}); err != nil {
			j.Log.Error().Err(err).Str("key", b.Key).Msg("failed to delete old backup")
			continue
		}
		deleted++
	}
	j.Log.Info().Int("deleted", deleted).Int("remaining", len(backups)-deleted).Msg("backup rotation complete")
	return nil
}

func addFileToArchive(tw *tar.Writer, path, nameInArchive string) (size int64, checksum string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, "", err
	}

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return 0, "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, "", err
	}

	if err := tw.WriteHeader(&tar.Header{Name: nameInArchive, Size: info.Size(), Mode: int64(info.Mode()), ModTime: info.ModTime()}); err != nil {
		return 0, "", err
	}
	if _, err := io.Copy(tw, f); err != nil {
		return 0, "", err
	}
	return info.Size(), fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeBytesToArchive(tw *tar.Writer, data []byte, nameInArchive string) error {
	if err := tw.WriteHeader(&tar.Header{Name: nameInArchive, Size: int64(len(data)), Mode: 0644, ModTime: time.Now()}); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}
