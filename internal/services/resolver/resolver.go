package resolver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/vuongmanhnghia/guild-player/internal/domain/entities"
	"github.com/vuongmanhnghia/guild-player/internal/domain/valueobjects"
	apperrors "github.com/vuongmanhnghia/guild-player/internal/errors"
	"github.com/vuongmanhnghia/guild-player/internal/utils"
	"github.com/vuongmanhnghia/guild-player/pkg/logger"
)

var (
	// ErrYtDlpNotFound is returned when yt-dlp is not installed
	ErrYtDlpNotFound = errors.New("yt-dlp not found in PATH")
)

// printTemplate is the yt-dlp output template, one tab-separated line per entry
const printTemplate = "%(url)s\t%(title)s\t%(duration)s\t%(thumbnail)s\t%(webpage_url)s"

// expiryMargin is how long before a signed stream URL expires it stops being reused
const expiryMargin = time.Minute

// Resolution is a playable stream plus its display metadata
type Resolution struct {
	AudioPath    string
	Duration     time.Duration
	Title        string
	ThumbnailURL string
	SourceURL    string
}

// Config configures the resolver
type Config struct {
	YtDlpPath string
	Timeout   time.Duration
	Rate      float64 // lookups per second
	CacheSize int
	CacheTTL  time.Duration
}

// runFunc executes yt-dlp for one target and returns its stdout
type runFunc func(ctx context.Context, target string) (string, error)

// Resolver turns URLs and search queries into playable streams via yt-dlp
type Resolver struct {
	cache   *utils.SmartCache[*Resolution]
	limiter *rate.Limiter
	group   singleflight.Group
	timeout time.Duration
	run     runFunc
	logger  *logger.Logger

	stop      chan struct{}
	closeOnce sync.Once
}

// New creates a resolver backed by the yt-dlp binary at cfg.YtDlpPath
func New(cfg Config, log *logger.Logger) (*Resolver, error) {
	path := cfg.YtDlpPath
	if path == "" {
		path = "yt-dlp"
	}

	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: please install yt-dlp", ErrYtDlpNotFound)
	}

	log.WithField("ytdlp_path", resolved).Info("Resolver initialized")

	return newResolver(cfg, ytdlpRunner(resolved), log), nil
}

func newResolver(cfg Config, run runFunc, log *logger.Logger) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 2
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 500
	}
	if cfg.CacheTTL <= 0 {
		// Stream URLs expire
		cfg.CacheTTL = 5 * time.Minute
	}

	r := &Resolver{
		cache:   utils.NewSmartCache[*Resolution](cfg.CacheSize, cfg.CacheTTL),
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), 1),
		timeout: cfg.Timeout,
		run:     run,
		logger:  log,
		stop:    make(chan struct{}),
	}
	go r.cache.StartCleanupWorker(cfg.CacheTTL, r.stop)

	return r
}

// Close stops the cache cleanup worker
func (r *Resolver) Close() {
	r.closeOnce.Do(func() {
		close(r.stop)
	})
}

func ytdlpRunner(executable string) runFunc {
	return func(ctx context.Context, target string) (string, error) {
		res, err := ytdlp.New().
			SetExecutable(executable).
			Print(printTemplate).
			Format("bestaudio/best").
			NoWarnings().
			IgnoreConfig().
			Run(ctx, "--no-playlist", target)
		if err != nil {
			return "", err
		}
		return res.Stdout, nil
	}
}

// Resolve looks up a URL or free-text query
func (r *Resolver) Resolve(ctx context.Context, query string) (*Resolution, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.ErrInvalidInput
	}

	if cached, ok := r.cache.Get(query); ok {
		r.logger.WithField("query", query).Debug("Cache hit for query")
		return cached, nil
	}

	v, err, _ := r.group.Do(query, func() (interface{}, error) {
		return r.lookup(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Resolution), nil
}

// ResolveItem resolves a query into a queueable item
func (r *Resolver) ResolveItem(ctx context.Context, query string, requester entities.Requester) (*entities.PlayItem, error) {
	res, err := r.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}
	return ToPlayItem(res, requester), nil
}

func (r *Resolver) lookup(ctx context.Context, query string) (*Resolution, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
	}

	target := SearchTarget(query)
	r.logger.WithField("target", target).Info("Resolving media...")

	out, err := r.run(ctx, target)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
		}
		r.logger.WithError(err).WithField("target", target).Warn("yt-dlp resolution failed")
		return nil, fmt.Errorf("%w: %v", apperrors.ErrResolutionFailed, err)
	}

	res, err := ParseOutput(out)
	if err != nil {
		return nil, err
	}

	if expiry, ok := StreamExpiry(res.AudioPath); ok {
		r.cache.SetUntil(query, res, expiry.Add(-expiryMargin))
	} else {
		r.cache.Set(query, res)
	}

	r.logger.WithFields(map[string]interface{}{
		"title":    res.Title,
		"duration": res.Duration,
	}).Info("✅ Resolved media")

	return res, nil
}

// CacheStats returns cache statistics
func (r *Resolver) CacheStats() (hits, misses, evictions int64, size int) {
	return r.cache.Stats()
}

// CacheHitRate returns the share of lookups served from the cache
func (r *Resolver) CacheHitRate() float64 {
	return r.cache.HitRate()
}

// StreamExpiry reads the expire parameter carried by signed stream URLs
func StreamExpiry(audioPath string) (time.Time, bool) {
	u, err := url.Parse(audioPath)
	if err != nil {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(u.Query().Get("expire"), 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}

// IsURL reports whether the query is an http(s) URL
func IsURL(query string) bool {
	u, err := url.Parse(query)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// SearchTarget passes URLs through and turns text into a single-result search
func SearchTarget(query string) string {
	if IsURL(query) {
		return query
	}
	return "ytsearch1:" + query
}

// ParseOutput reads the first usable line of yt-dlp print output
func ParseOutput(out string) (*Resolution, error) {
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := strings.Split(strings.TrimRight(line, "\r"), "\t")
		if len(parts) < 5 || !IsURL(parts[0]) {
			continue
		}

		return &Resolution{
			AudioPath:    parts[0],
			Title:        field(parts[1]),
			Duration:     parseDuration(parts[2]),
			ThumbnailURL: field(parts[3]),
			SourceURL:    field(parts[4]),
		}, nil
	}
	return nil, apperrors.ErrNotFound
}

// ToPlayItem builds a resolved item for the requester
func ToPlayItem(res *Resolution, requester entities.Requester) *entities.PlayItem {
	return entities.NewResolvedItem(res.AudioPath, res.Duration, requester, valueobjects.MediaInfo{
		Title:        res.Title,
		ThumbnailURL: res.ThumbnailURL,
		SourceURL:    res.SourceURL,
	})
}

// parseDuration rounds fractional seconds up; unknown durations are zero
func parseDuration(s string) time.Duration {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return entities.SecondsToDuration(int(math.Ceil(seconds)))
}

// field maps yt-dlp's "NA" placeholder to an empty string
func field(s string) string {
	if s == "NA" {
		return ""
	}
	return s
}
