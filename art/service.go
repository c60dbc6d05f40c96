package art

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"cookduel/card"
)

// Options 美术缓存参数
type Options struct {
	Size        int
	TTL         time.Duration
	Timeout     time.Duration
	Parallelism int
	Logger      *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Size:        128,
		TTL:         6 * time.Hour,
		Timeout:     20 * time.Second,
		Parallelism: 4,
	}
}

// Service is the side table from card template to generated art. Gameplay never
// waits on it: lookups that fail or time out fall back to a placeholder.
type Service struct {
	gen   Generator
	opts  Options
	cache *expirable.LRU[string, string]
	group singleflight.Group
	log   *slog.Logger
}

func NewService(gen Generator, opts Options) *Service {
	def := DefaultOptions()
	if opts.Size <= 0 {
		opts.Size = def.Size
	}
	if opts.TTL <= 0 {
		opts.TTL = def.TTL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = def.Parallelism
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gen:   gen,
		opts:  opts,
		cache: expirable.NewLRU[string, string](opts.Size, nil, opts.TTL),
		log:   logger.With("component", "art"),
	}
}

// URL returns the cached image for key without blocking.
func (s *Service) URL(key string) (string, bool) {
	return s.cache.Get(key)
}

// Lookup returns the image for key, generating it from prompt on a miss. Concurrent
// lookups of one key share a single request. It never fails.
func (s *Service) Lookup(ctx context.Context, prompt, key string) string {
	if u, ok := s.cache.Get(key); ok {
		return u
	}
	u, err := s.fetch(ctx, prompt, key)
	if err != nil {
		s.log.Warn("art lookup failed", "key", key, "error", err)
		return Placeholder(key)
	}
	return u
}

// CardArt looks up art for a card instance by its template.
func (s *Service) CardArt(ctx context.Context, c card.Card) string {
	tpl := c.TemplateID
	if tpl == "" {
		tpl = card.TemplateOf(c.ID)
	}
	return s.Lookup(ctx, card.Prompt(tpl), tpl)
}

func (s *Service) fetch(ctx context.Context, prompt, key string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("no prompt for %q", key)
	}
	if s.gen == nil {
		return "", errors.New("no generator configured")
	}
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.Timeout)
		defer cancel()
		u, err := s.gen.Generate(cctx, prompt)
		if err != nil {
			return "", err
		}
		if u == "" {
			return "", ErrNoImage
		}
		s.cache.Add(key, u)
		return u, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Prefetch warms the cache for keys, a few at a time. It reports the first failure
// but keeps going for the rest.
func (s *Service) Prefetch(ctx context.Context, keys []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Parallelism)
	errs := make([]error, len(keys))
	for i, key := range keys {
		if _, ok := s.cache.Get(key); ok {
			continue
		}
		g.Go(func() error {
			_, errs[i] = s.fetch(gctx, card.Prompt(key), key)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// CatalogKeys lists every template id that has a prompt.
func CatalogKeys() []string {
	var keys []string
	for _, set := range []card.List{card.Ingredients(), card.Wilds(), card.Orders()} {
		for _, c := range set {
			if card.Prompt(c.TemplateID) != "" {
				keys = append(keys, c.TemplateID)
			}
		}
	}
	return keys
}

var placeholderColors = []string{"f59e0b", "ef4444", "10b981", "3b82f6", "8b5cf6", "ec4899"}

// Placeholder is the deterministic stand-in image for key.
func Placeholder(key string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	color := placeholderColors[h.Sum32()%uint32(len(placeholderColors))]
	name := key
	if c, ok := card.Lookup(card.TemplateOf(key)); ok {
		name = c.Name
	}
	return fmt.Sprintf("https://placehold.co/512x512/%s/ffffff?text=%s", color, url.QueryEscape(name))
}
