// Package memory holds the token to category map that powers
// categorization suggestions. The map is process-wide, guarded by a
// reader/writer lock, and written through to durable storage on every
// successful learn.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/avatar25/ArthaOS/internal/log"
)

// TokenStore persists token bindings. All bindings of one upsert call
// must land in a single storage transaction.
type TokenStore interface {
	LoadTokenBindings(ctx context.Context) (map[string]string, error)
	UpsertTokenBindings(ctx context.Context, tokens []string, category string) error
}

type Memory struct {
	mu     sync.RWMutex
	tokens map[string]string
	store  TokenStore
	logger *log.Logger
}

// Load hydrates the full token map from storage. A hydration failure
// downgrades to an empty map with a warning; it never blocks startup.
func Load(ctx context.Context, store TokenStore, logger *log.Logger) *Memory {
	tokens, err := store.LoadTokenBindings(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Failed to hydrate categorization memory, starting empty", log.FieldError, err)
		tokens = make(map[string]string)
	}

	return &Memory{
		tokens: tokens,
		store:  store,
		logger: logger,
	}
}

// Suggest returns the category bound to the first token of the
// description that has a learned binding, or "" when none matches.
// First match wins: order in the source text is the tie-break.
func (m *Memory) Suggest(description string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, token := range Tokenize(description) {
		if category, ok := m.tokens[token]; ok {
			return category
		}
	}
	return ""
}

// Learn binds every token of the description to the category,
// overwriting prior bindings and bumping hit counts. The durable upsert
// happens first; the in-memory map is updated only once it succeeds, so
// both copies converge after every successful call.
func (m *Memory) Learn(ctx context.Context, description, category string) error {
	tokens := Tokenize(description)
	if len(tokens) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.UpsertTokenBindings(ctx, tokens, category); err != nil {
		return fmt.Errorf("persist token bindings: %w", err)
	}
	for _, token := range tokens {
		m.tokens[token] = category
	}

	m.logger.DebugContext(ctx, "Learned token bindings",
		log.FieldOperation, log.OpLearn,
		log.FieldCategory, category,
		"tokens", len(tokens))
	return nil
}

// Size returns the number of bound tokens.
func (m *Memory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}

// Tokenize splits on non-alphanumeric boundaries, lowercases, and drops
// tokens of length <= 2.
func Tokenize(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) <= 2 {
			continue
		}
		tokens = append(tokens, strings.ToLower(f))
	}
	return tokens
}
