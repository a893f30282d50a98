package blocklist

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikey/phish-detect/internal/ports"
	"go.uber.org/zap"
)

// StoreKey is the key holding the blocked addresses
const StoreKey = "blockedEmails"

// Gate checks senders against the persisted blocklist
type Gate struct {
	store  ports.KeyValueStore
	logger *zap.Logger
}

// NewGate creates a new blocklist gate
func NewGate(store ports.KeyValueStore, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		store:  store,
		logger: logger,
	}
}

// Normalize lowercases and trims an address
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsBlocked reports whether senderEmail is on the blocklist. The store is
// read on every call and never written.
func (g *Gate) IsBlocked(ctx context.Context, senderEmail string) (bool, error) {
	entries, err := g.store.Get(ctx, StoreKey)
	if err != nil {
		return false, fmt.Errorf("failed to read blocklist: %w", err)
	}

	sender := Normalize(senderEmail)
	if sender == "" {
		return false, nil
	}
	for _, entry := range entries {
		if Normalize(entry) == sender {
			g.logger.Debug("Sender is blocklisted", zap.String("email", senderEmail))
			return true, nil
		}
	}
	return false, nil
}

// Seed merges addresses into the stored blocklist, normalized and
// deduplicated
func Seed(ctx context.Context, store ports.KeyValueStore, addresses []string) error {
	if len(addresses) == 0 {
		return nil
	}
	existing, err := store.Get(ctx, StoreKey)
	if err != nil {
		return fmt.Errorf("failed to read blocklist: %w", err)
	}

	seen := make(map[string]struct{}, len(existing)+len(addresses))
	merged := make([]string, 0, len(existing)+len(addresses))
	all := append(append([]string{}, existing...), addresses...)
	for _, addr := range all {
		addr = Normalize(addr)
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		merged = append(merged, addr)
	}

	if err := store.Set(ctx, StoreKey, merged); err != nil {
		return fmt.Errorf("failed to write blocklist: %w", err)
	}
	return nil
}
