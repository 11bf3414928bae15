package pricing

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/domain"
)

// PolicyStore publishes the active Policy. Readers always see a complete policy;
// a reload swaps the pointer only after the new policy validates.
type PolicyStore struct {
	current     atomic.Pointer[Policy]
	strictStock bool
	logger      *zap.Logger
}

// NewPolicyStore creates a store seeded with policy
func NewPolicyStore(policy *Policy, logger *zap.Logger) (*PolicyStore, error) {
	s := &PolicyStore{logger: logger}
	if err := s.Swap(policy); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the active policy
func (s *PolicyStore) Current() *Policy {
	return s.current.Load()
}

// ForceStrictStock makes every published policy enforce strict stock, whatever its file says
func (s *PolicyStore) ForceStrictStock() {
	s.strictStock = true
	if p := s.current.Load(); p != nil && !p.StrictStock {
		next := *p
		next.StrictStock = true
		s.current.Store(&next)
	}
}

// Swap validates and publishes a new policy
func (s *PolicyStore) Swap(policy *Policy) error {
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("invalid pricing policy: %w", err)
	}
	policy.normalize()
	if s.strictStock {
		policy.StrictStock = true
	}
	s.current.Store(policy)
	return nil
}

// policyFile is the on-disk shape of a pricing policy (YAML, JSON or TOML)
type policyFile struct {
	TierDiscounts      map[string]float64 `mapstructure:"tierDiscounts"`
	VolumeDiscounts    []volumeRuleFile   `mapstructure:"volumeDiscounts"`
	MinimumOrderAmount map[string]float64 `mapstructure:"minimumOrderAmount"`
	CreditTermsTiers   []string           `mapstructure:"creditTermsTiers"`
	StrictStock        bool               `mapstructure:"strictStock"`
	VolumeHintWithin   *int               `mapstructure:"volumeHintWithin"`
}

type volumeRuleFile struct {
	Name            string  `mapstructure:"name"`
	MinQuantity     int     `mapstructure:"minQuantity"`
	DiscountPercent float64 `mapstructure:"discountPercent"`
	AppliesTo       string  `mapstructure:"appliesTo"`
}

// LoadPolicyFile reads a pricing policy file. Tiers missing from the file keep their defaults.
func LoadPolicyFile(path string) (*Policy, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading pricing config: %w", err)
	}
	return decodePolicy(v)
}

func decodePolicy(v *viper.Viper) (*Policy, error) {
	var raw policyFile
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("error decoding pricing config: %w", err)
	}

	policy := DefaultPolicy()
	// viper lower-cases map keys, tiers are upper-case
	for tier, pct := range raw.TierDiscounts {
		policy.TierDiscounts[domain.DealerTier(strings.ToUpper(tier))] = decimal.NewFromFloat(pct)
	}
	for tier, amount := range raw.MinimumOrderAmount {
		policy.MinimumOrderAmount[domain.DealerTier(strings.ToUpper(tier))] = decimal.NewFromFloat(amount)
	}
	for _, rule := range raw.VolumeDiscounts {
		policy.VolumeDiscounts = append(policy.VolumeDiscounts, domain.VolumeDiscount{
			Name:            rule.Name,
			MinQuantity:     rule.MinQuantity,
			DiscountPercent: decimal.NewFromFloat(rule.DiscountPercent),
			AppliesTo:       domain.DiscountScope(strings.ToLower(rule.AppliesTo)),
		})
	}
	if len(raw.CreditTermsTiers) > 0 {
		policy.CreditTermsTiers = policy.CreditTermsTiers[:0]
		for _, tier := range raw.CreditTermsTiers {
			policy.CreditTermsTiers = append(policy.CreditTermsTiers, domain.DealerTier(strings.ToUpper(tier)))
		}
	}
	policy.StrictStock = raw.StrictStock
	if raw.VolumeHintWithin != nil {
		policy.VolumeHintWithin = *raw.VolumeHintWithin
	}
	return policy, nil
}

// WatchFile loads path into the store and keeps reloading it whenever the file changes.
// A file that fails to load or validate is logged and the previous policy stays active.
func (s *PolicyStore) WatchFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading pricing config: %w", err)
	}
	policy, err := decodePolicy(v)
	if err != nil {
		return err
	}
	if err := s.Swap(policy); err != nil {
		return err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		next, err := decodePolicy(v)
		if err == nil {
			err = s.Swap(next)
		}
		if err != nil {
			s.logger.Error("Failed to reload pricing policy, keeping previous policy",
				zap.String("file", e.Name),
				zap.Error(err),
			)
			return
		}
		s.logger.Info("Pricing policy reloaded",
			zap.String("file", e.Name),
			zap.Int("volume_rules", len(next.VolumeDiscounts)),
		)
	})
	v.WatchConfig()
	return nil
}
