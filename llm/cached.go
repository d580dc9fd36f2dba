package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/brunobiangulo/rpdextract/cache"
)

// cachedCompleter memoises completions so repeated prompts against the same
// model skip the service.
type cachedCompleter struct {
	next  Completer
	store cache.Cache
	ttl   time.Duration
	model string
}

// NewCachedCompleter wraps c with a completion cache. Cache failures are
// logged and otherwise ignored.
func NewCachedCompleter(c Completer, store cache.Cache, ttl time.Duration) Completer {
	if store == nil {
		return c
	}
	cc := &cachedCompleter{next: c, store: store, ttl: ttl}
	if m, ok := c.(interface{ Model() string }); ok {
		cc.model = m.Model()
	}
	return cc
}

func (c *cachedCompleter) key(prompt string, opts GenerateOptions) string {
	return cache.Key("llm", map[string]string{
		"model":       c.model,
		"temperature": strconv.FormatFloat(opts.Temperature, 'f', -1, 64),
		"max_tokens":  strconv.Itoa(opts.MaxTokens),
		"prompt":      prompt,
	})
}

func (c *cachedCompleter) Complete(ctx context.Context, prompt string, opts GenerateOptions) (*Completion, error) {
	key := c.key(prompt, opts)

	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		slog.Warn("llm: cache get failed", "error", err)
	}
	if ok {
		var comp Completion
		if err := json.Unmarshal(raw, &comp); err == nil {
			comp.Cached = true
			return &comp, nil
		}
		slog.Warn("llm: discarding unreadable cache entry", "key", key)
	}

	comp, err := c.next.Complete(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(comp); err == nil {
		if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
			slog.Warn("llm: cache set failed", "error", err)
		}
	}
	return comp, nil
}
