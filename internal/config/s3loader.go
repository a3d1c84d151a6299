package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectGetter is the subset of *s3.Client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client builds a client for Tigris or any S3-compatible store. Returns
// nil when no config bucket is set.
func NewS3Client(ctx context.Context, cfg *Config) (*s3.Client, error) {
	if !cfg.StorageEnabled {
		return nil, nil
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.StorageRegion)}
	if cfg.StorageAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.StorageAccessKey, cfg.StorageSecretKey, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(creds))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.StorageEndpoint == "" {
			return
		}
		o.BaseEndpoint = aws.String(cfg.StorageEndpoint)
		o.UsePathStyle = true
	}), nil
}

// S3LoaderConfig configures an S3Loader.
type S3LoaderConfig struct {
	Client ObjectGetter
	Bucket string
	Key    string
	// CacheTTL is the minimum gap between checks (default 5m).
	CacheTTL time.Duration
	// ErrorBackoff suppresses checks after a failure (default 1m).
	ErrorBackoff time.Duration
	Logger       *slog.Logger
}

// S3LoadResult is the outcome of a fetch that reached the store.
type S3LoadResult struct {
	Data       []byte
	Etag       string
	FetchTime  time.Time
	NotChanged bool // conditional GET matched the cached ETag
}

// S3Loader polls a single JSON object using conditional GETs.
type S3Loader struct {
	client       ObjectGetter
	bucket       string
	key          string
	cacheTTL     time.Duration
	errorBackoff time.Duration
	logger       *slog.Logger

	inflight atomic.Bool

	mu    sync.RWMutex
	state objectState
}

type objectState struct {
	loaded    bool // at least one attempt has completed
	etag      string
	fetchedAt time.Time
	checkedAt time.Time
	failedAt  time.Time
}

// NewS3Loader creates a loader.
func NewS3Loader(cfg S3LoaderConfig) *S3Loader {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &S3Loader{
		client:       cfg.Client,
		bucket:       cfg.Bucket,
		key:          cfg.Key,
		cacheTTL:     cfg.CacheTTL,
		errorBackoff: cfg.ErrorBackoff,
		logger:       cfg.Logger.With("bucket", cfg.Bucket, "key", cfg.Key),
	}
}

// IsEnabled reports whether a client and bucket are configured.
func (l *S3Loader) IsEnabled() bool {
	return l.client != nil && l.bucket != ""
}

// NeedsRefresh reports whether a check is due: the TTL has passed, no fetch
// is running and the loader is not backing off after an error.
func (l *S3Loader) NeedsRefresh() bool {
	if l.inflight.Load() {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.due(time.Now()) && !l.backingOff(time.Now())
}

func (l *S3Loader) due(now time.Time) bool {
	return !l.state.loaded || now.Sub(l.state.checkedAt) > l.cacheTTL
}

func (l *S3Loader) backingOff(now time.Time) bool {
	return !l.state.failedAt.IsZero() && now.Sub(l.state.failedAt) < l.errorBackoff
}

// Fetch performs a conditional GET when a check is due. It returns nil, nil
// when skipped or when the object does not exist.
func (l *S3Loader) Fetch(ctx context.Context) (*S3LoadResult, error) {
	if !l.IsEnabled() {
		return nil, nil
	}

	l.mu.RLock()
	due, etag := l.due(time.Now()), l.state.etag
	l.mu.RUnlock()
	if !due || !l.inflight.CompareAndSwap(false, true) {
		return nil, nil
	}
	defer l.inflight.Store(false)

	input := &s3.GetObjectInput{Bucket: aws.String(l.bucket), Key: aws.String(l.key)}
	if etag != "" {
		input.IfNoneMatch = aws.String(`"` + etag + `"`)
	}

	out, err := l.client.GetObject(ctx, input)
	switch {
	case err == nil:
		return l.accept(out)
	case isNoSuchKey(err):
		first := l.update(func(s *objectState, now time.Time) {
			s.checkedAt = now
			s.failedAt = now
		})
		if first {
			l.logger.Debug("S3 config file not found (using defaults)")
		}
		return nil, nil
	case isNotModified(err):
		l.update(func(s *objectState, now time.Time) { s.checkedAt = now })
		l.logger.Debug("S3 config unchanged", "etag", etag)
		return &S3LoadResult{Etag: etag, NotChanged: true}, nil
	default:
		l.fail()
		l.logger.Error("failed to fetch S3 config", "error", err, "retry_after", l.errorBackoff)
		return nil, err
	}
}

func (l *S3Loader) accept(out *s3.GetObjectOutput) (*S3LoadResult, error) {
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err == nil && !json.Valid(data) {
		err = errors.New("object is not valid JSON")
	}
	if err != nil {
		l.fail()
		l.logger.Error("failed to read S3 config", "error", err)
		return nil, err
	}

	etag := strings.Trim(aws.ToString(out.ETag), `"`)
	var fetched time.Time
	l.update(func(s *objectState, now time.Time) {
		s.etag = etag
		s.fetchedAt = now
		s.checkedAt = now
		s.failedAt = time.Time{}
		fetched = now
	})
	l.logger.Debug("S3 config fetched", "etag", etag, "size", len(data))

	return &S3LoadResult{Data: data, Etag: etag, FetchTime: fetched}, nil
}

func (l *S3Loader) fail() {
	l.update(func(s *objectState, now time.Time) { s.failedAt = now })
}

// update applies fn under the lock, marks the state loaded and reports
// whether this was the first completed attempt.
func (l *S3Loader) update(fn func(s *objectState, now time.Time)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	first := !l.state.loaded
	fn(&l.state, time.Now())
	l.state.loaded = true
	return first
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}

func isNotModified(err error) bool {
	var coded interface{ ErrorCode() string }
	return errors.As(err, &coded) && coded.ErrorCode() == "NotModified"
}

// S3LoaderStats is a diagnostic snapshot of the loader.
type S3LoaderStats struct {
	Enabled     bool      `json:"enabled"`
	Initialized bool      `json:"initialized"`
	Etag        string    `json:"etag,omitempty"`
	LastFetch   time.Time `json:"last_fetch"`
	LastCheck   time.Time `json:"last_check"`
	LastError   time.Time `json:"last_error"`
	CacheTTL    string    `json:"cache_ttl"`
}

// Stats returns the current loader state.
func (l *S3Loader) Stats() S3LoaderStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return S3LoaderStats{
		Enabled:     l.IsEnabled(),
		Initialized: l.state.loaded,
		Etag:        l.state.etag,
		LastFetch:   l.state.fetchedAt,
		LastCheck:   l.state.checkedAt,
		LastError:   l.state.failedAt,
		CacheTTL:    l.cacheTTL.String(),
	}
}
