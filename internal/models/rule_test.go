// internal/models/rule_test.go
package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func TestRuleOverlapsRange(t *testing.T) {
	tests := []struct {
		name      string
		ruleStart time.Time
		ruleEnd   *time.Time
		start     time.Time
		end       *time.Time
		want      bool
	}{
		{
			name:      "disjoint before",
			ruleStart: date(2026, 1, 1), ruleEnd: datePtr(2026, 3, 31),
			start: date(2026, 4, 1), end: datePtr(2026, 6, 30),
			want: false,
		},
		{
			name:      "disjoint after",
			ruleStart: date(2026, 7, 1), ruleEnd: datePtr(2026, 12, 31),
			start: date(2026, 1, 1), end: datePtr(2026, 6, 30),
			want: false,
		},
		{
			name:      "partial overlap",
			ruleStart: date(2026, 1, 1), ruleEnd: datePtr(2026, 6, 30),
			start: date(2026, 6, 1), end: datePtr(2026, 12, 31),
			want: true,
		},
		{
			name:      "contained",
			ruleStart: date(2026, 1, 1), ruleEnd: datePtr(2026, 12, 31),
			start: date(2026, 3, 1), end: datePtr(2026, 4, 1),
			want: true,
		},
		{
			name:      "shared boundary day",
			ruleStart: date(2026, 1, 1), ruleEnd: datePtr(2026, 6, 30),
			start: date(2026, 6, 30), end: nil,
			want: true,
		},
		{
			name:      "rule open ended catches later range",
			ruleStart: date(2026, 1, 1), ruleEnd: nil,
			start: date(2030, 1, 1), end: nil,
			want: true,
		},
		{
			name:      "candidate open ended catches later rule",
			ruleStart: date(2030, 1, 1), ruleEnd: nil,
			start: date(2026, 1, 1), end: nil,
			want: true,
		},
		{
			name:      "open ended rule before bounded range",
			ruleStart: date(2027, 1, 1), ruleEnd: nil,
			start: date(2026, 1, 1), end: datePtr(2026, 6, 30),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &Rule{EffectiveStartDate: tt.ruleStart, EffectiveEndDate: tt.ruleEnd}
			assert.Equal(t, tt.want, rule.OverlapsRange(tt.start, tt.end))
		})
	}
}

func TestRuleStatus(t *testing.T) {
	now := date(2026, 6, 15)

	inactive := &Rule{IsActive: false, EffectiveStartDate: date(2026, 1, 1)}
	assert.Equal(t, RuleStatusInactive, inactive.Status(now))

	future := &Rule{IsActive: true, EffectiveStartDate: date(2026, 7, 1)}
	assert.Equal(t, RuleStatusFuture, future.Status(now))

	expired := &Rule{IsActive: true, EffectiveStartDate: date(2026, 1, 1), EffectiveEndDate: datePtr(2026, 5, 31)}
	assert.Equal(t, RuleStatusExpired, expired.Status(now))

	active := &Rule{IsActive: true, EffectiveStartDate: date(2026, 1, 1), EffectiveEndDate: datePtr(2026, 12, 31)}
	assert.Equal(t, RuleStatusActive, active.Status(now))

	openEnded := &Rule{IsActive: true, EffectiveStartDate: date(2026, 1, 1)}
	assert.Equal(t, RuleStatusActive, openEnded.Status(now))
}

func TestRuleScopeSameTarget(t *testing.T) {
	storeA := uuid.New()
	storeB := uuid.New()
	gold := SellerTierGold
	silver := SellerTierSilver

	global := RuleScope{Type: ScopeTypeGlobal}
	assert.True(t, global.SameTarget(RuleScope{Type: ScopeTypeGlobal}))
	assert.False(t, global.SameTarget(RuleScope{Type: ScopeTypeStore, StoreID: &storeA}))

	scopeA := RuleScope{Type: ScopeTypeStore, StoreID: &storeA}
	assert.True(t, scopeA.SameTarget(RuleScope{Type: ScopeTypeStore, StoreID: &storeA}))
	assert.False(t, scopeA.SameTarget(RuleScope{Type: ScopeTypeStore, StoreID: &storeB}))

	goldScope := RuleScope{Type: ScopeTypeSellerTier, Tier: &gold}
	assert.True(t, goldScope.SameTarget(RuleScope{Type: ScopeTypeSellerTier, Tier: &gold}))
	assert.False(t, goldScope.SameTarget(RuleScope{Type: ScopeTypeSellerTier, Tier: &silver}))

	bavaria := RuleScope{Type: ScopeTypeGeo, CountryCode: "DE", Region: "Bavaria"}
	assert.True(t, bavaria.SameTarget(RuleScope{Type: ScopeTypeGeo, CountryCode: "DE", Region: "Bavaria"}))
	assert.False(t, bavaria.SameTarget(RuleScope{Type: ScopeTypeGeo, CountryCode: "DE", Region: ""}))
	assert.False(t, bavaria.SameTarget(RuleScope{Type: ScopeTypeGeo, CountryCode: "AT", Region: "Bavaria"}))
}

func TestApplyScopeClearsForeignColumns(t *testing.T) {
	storeID := uuid.New()
	categoryID := uuid.New()

	rule := &Rule{}
	rule.ApplyScope(RuleScope{Type: ScopeTypeStore, StoreID: &storeID})
	assert.Equal(t, ScopeTypeStore, rule.ScopeType)
	assert.Equal(t, storeID, *rule.StoreID)

	rule.ApplyScope(RuleScope{Type: ScopeTypeCategory, CategoryID: &categoryID})
	assert.Nil(t, rule.StoreID)
	assert.Equal(t, categoryID, *rule.CategoryID)

	rule.ApplyScope(RuleScope{Type: ScopeTypeGeo, CountryCode: "DE", Region: "Bavaria"})
	assert.Nil(t, rule.CategoryID)
	assert.Equal(t, "DE", rule.CountryCode)

	rule.ApplyScope(RuleScope{Type: ScopeTypeGlobal})
	assert.Empty(t, rule.CountryCode)
	assert.Empty(t, rule.Region)
}
