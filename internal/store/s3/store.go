// Package s3 stores cohort snapshots in an S3 compatible bucket under
// <prefix>/<blueprint>/<timestamp>_<blueprint>.json.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/cohort"
	cerrors "github.com/QualiSystemsLab/Sandbox-Load-Testing/internal/errors"
)

// Driver identifies the S3 store.
const Driver = "s3"

// Config holds construction parameters.
type Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // optional; custom endpoint such as MinIO
	PathStyle       bool
	AccessKeyID     string // optional; default credential chain otherwise
	SecretAccessKey string
	HTTPClient      s3.HTTPClient // optional; tests substitute a transport
}

// Store implements snapshot storage on S3.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an S3 store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, cerrors.ConfigError("s3 bucket required", nil)
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, cerrors.StoreError("load aws config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// S3 compatible servers often reject streaming checksums.
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	})
	return &Store{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

func (s *Store) Driver() string { return Driver }

func (s *Store) Close() error { return nil }

func (s *Store) key(blueprintID, name string) string {
	return path.Join(s.prefix, blueprintID, name)
}

// Save uploads the full snapshot, replacing any previous object.
func (s *Store) Save(ctx context.Context, c *cohort.Cohort) error {
	data, err := cohort.Marshal(c)
	if err != nil {
		return cerrors.StoreError("encode", err)
	}
	key := s.key(c.BlueprintID, cohort.SnapshotName(c.RunTimestamp, c.BlueprintID))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return cerrors.StoreError("save", err)
	}
	return nil
}

// Load downloads and decodes a snapshot.
func (s *Store) Load(ctx context.Context, blueprintID, runTimestamp string) (*cohort.Cohort, error) {
	key := s.key(blueprintID, cohort.SnapshotName(runTimestamp, blueprintID))
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return nil, cerrors.RunNotFound(blueprintID, runTimestamp)
		}
		return nil, cerrors.StoreError("load", err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, cerrors.StoreError("load", err)
	}
	c, err := cohort.Unmarshal(data, blueprintID, runTimestamp)
	if err != nil {
		return nil, cerrors.StoreError("decode", err)
	}
	return c, nil
}

// List returns the snapshot names under the blueprint prefix.
func (s *Store) List(ctx context.Context, blueprintID string) ([]string, error) {
	prefix := s.key(blueprintID, "") + "/"
	var names []string
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &prefix,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, cerrors.StoreError("list", err)
		}
		for _, obj := range out.Contents {
			rest := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if rest == "" || strings.Contains(rest, "/") || path.Ext(rest) != ".json" {
				continue
			}
			names = append(names, rest)
		}
		if out.IsTruncated != nil && *out.IsTruncated && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Strings(names)
	return names, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re interface{ HTTPStatusCode() int }
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

// String describes the store location.
func (s *Store) String() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.prefix)
}
