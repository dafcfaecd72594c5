// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package parquetlog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dustin/go-humanize"

	"github.com/concord-consortium/cloudops/internal/util"
)

// Migrator rewrites the log files of one bucket. Nothing is written unless
// Update is set.
type Migrator struct {
	List       ListAPI
	Downloader Downloader
	Uploader   Uploader
	Bucket     string
	Update     bool
	// Out receives the progress report, stdout when nil.
	Out io.Writer
	// Now defaults to time.Now.
	Now func() time.Time
}

func (m *Migrator) out() io.Writer {
	if m.Out == nil {
		return os.Stdout
	}
	return m.Out
}

func (m *Migrator) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// AddIDs rewrites every source file that lacks an id column into the target
// prefix. Failures are reported per key and do not stop the run.
func (m *Migrator) AddIDs(ctx context.Context) (util.Summary, error) {
	var sum util.Summary
	out := m.out()

	if !m.Update {
		fmt.Fprintln(out, "NOT UPDATING!")
	}

	objects, err := List(ctx, m.List, m.Bucket, SourcePrefix)
	if err != nil {
		return sum, err
	}

	keys := make([]string, 0, len(objects))
	for _, o := range objects {
		if !strings.HasSuffix(o.Key, Suffix) {
			log.Debugf("skipping non-parquet key: %s", o.Key)
			continue
		}
		keys = append(keys, o.Key)
	}
	fmt.Fprintf(out, "Total number of keys found: %d\n", len(keys))

	start := m.now()
	updates := 0
	for _, key := range keys {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}

		data, err := m.download(ctx, key)
		if err != nil {
			log.Errorf("%s: %v", key, err)
			sum.Failed++
			continue
		}

		hasID, err := HasID(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			log.Errorf("%s: %v", key, err)
			sum.Failed++
			continue
		}
		if hasID {
			fmt.Fprintf(out, "%s ALREADY HAS ID\n", key)
			sum.Skipped++
			continue
		}
		if !m.Update {
			fmt.Fprintf(out, "%s NO ID\n", key)
			sum.Skipped++
			continue
		}

		if err := m.migrate(ctx, key, data); err != nil {
			log.Errorf("%s: %v", key, err)
			sum.Failed++
			continue
		}
		sum.Updated++
		updates++

		// remaining assumes every key left needs an upload.
		elapsed := m.now().Sub(start)
		perUpdate := elapsed / time.Duration(updates)
		remaining := perUpdate * time.Duration(len(keys)-updates)
		fmt.Fprintf(out, "%d of %d: %s (elapsed: %s, perUpdate: %s, remaining: %s)\n",
			updates, len(keys), TargetKey(key), NiceTime(elapsed), NiceTime(perUpdate), NiceTime(remaining))
	}

	total := m.now().Sub(start)
	fmt.Fprintf(out, "\nTOTAL TIME: %s (%s ms)\n", NiceTime(total), humanize.Comma(total.Milliseconds()))
	return sum, sum.Err()
}

// CopyMissed rewrites the named source keys into files under dir, using the
// target key as the relative path. Keys may omit the source prefix.
func (m *Migrator) CopyMissed(ctx context.Context, keys []string, dir string) (util.Summary, error) {
	var sum util.Summary
	out := m.out()

	if !m.Update {
		fmt.Fprintln(out, "NOT UPDATING!")
	}
	if dir == "" {
		dir = "."
	}

	for i, k := range keys {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}

		key := SourceKey(k)
		fmt.Fprintf(out, "%d of %d: %s\n", i+1, len(keys), key)

		if !m.Update {
			sum.Skipped++
			continue
		}

		data, err := m.download(ctx, key)
		if err != nil {
			log.Errorf("%s: %v", key, err)
			sum.Failed++
			continue
		}

		path := filepath.Join(dir, filepath.FromSlash(TargetKey(key)))
		if err := writeLocal(path, data, m.now()); err != nil {
			log.Errorf("%s: %v", key, err)
			sum.Failed++
			continue
		}
		log.Debugf("wrote %s", path)
		sum.Updated++
	}

	return sum, sum.Err()
}

func (m *Migrator) download(ctx context.Context, key string) ([]byte, error) {
	buf := manager.NewWriteAtBuffer([]byte{})
	_, err := m.Downloader.Download(ctx, buf, &s3v2.GetObjectInput{
		Bucket: awsv2.String(m.Bucket),
		Key:    awsv2.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *Migrator) migrate(ctx context.Context, key string, data []byte) error {
	var rewritten bytes.Buffer
	if _, err := AddID(bytes.NewReader(data), int64(len(data)), &rewritten, nowSeconds(m.now())); err != nil {
		return err
	}

	target := TargetKey(key)
	_, err := m.Uploader.Upload(ctx, &s3v2.PutObjectInput{
		Bucket: awsv2.String(m.Bucket),
		Key:    awsv2.String(target),
		Body:   bytes.NewReader(rewritten.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", target, err)
	}
	return nil
}

func writeLocal(path string, data []byte, now time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := AddID(bytes.NewReader(data), int64(len(data)), f, nowSeconds(now)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func nowSeconds(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}

// NiceTime renders d as hours, minutes and seconds, omitting leading zero
// units.
func NiceTime(d time.Duration) string {
	ms := d.Milliseconds()
	hours := ms / time.Hour.Milliseconds()
	ms -= hours * time.Hour.Milliseconds()
	minutes := ms / time.Minute.Milliseconds()
	ms -= minutes * time.Minute.Milliseconds()
	seconds := float64(ms) / 1000

	var parts []string
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%.2fh", float64(hours)))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%.2fm", float64(minutes)))
	}
	parts = append(parts, fmt.Sprintf("%.2fs", seconds))
	return strings.Join(parts, " ")
}
