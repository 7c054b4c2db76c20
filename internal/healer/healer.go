// Package healer evaluates healing rules against the latest metrics and
// anomaly state and dispatches remediation requests, with a per-rule
// cooldown to prevent action flapping.
package healer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/miradorstack/mirador-sentinel/internal/models"
	"github.com/miradorstack/mirador-sentinel/internal/utils"
)

// Condition is a predicate over the latest snapshot and anomaly score.
type Condition func(models.MetricsSnapshot, models.AnomalyScore) bool

// Rule maps a condition to a remediation action with a cooldown window.
type Rule struct {
	ID          string
	Description string
	Condition   Condition
	Action      string
	Cooldown    time.Duration
}

// ActionDispatcher hands an action to the external remediation collaborator.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, action string, info map[string]string) error
}

// DispatchRecord captures one dispatch attempt for a rule.
type DispatchRecord struct {
	RuleID string    `json:"rule_id"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
	Error  string    `json:"error,omitempty"`
}

type ruleState struct {
	rule      Rule
	lastFired time.Time
}

// Healer holds the registered rules and their cooldown state. Rules mutate
// only through Register; evaluation records dispatch attempts in a bounded
// history.
type Healer struct {
	mu         sync.Mutex
	logger     *slog.Logger
	dispatcher ActionDispatcher
	rules      map[string]*ruleState
	order      []string
	history    []DispatchRecord
	historyCap int
	now        func() time.Time
}

// New constructs a Healer. dispatcher may be nil; evaluation then records
// the decision without an outbound call.
func New(logger *slog.Logger, dispatcher ActionDispatcher, historyCap int) *Healer {
	if logger == nil {
		logger = slog.Default()
	}
	if historyCap <= 0 {
		historyCap = 100
	}
	return &Healer{
		logger:     logger,
		dispatcher: dispatcher,
		rules:      map[string]*ruleState{},
		historyCap: historyCap,
		now:        time.Now,
	}
}

// Register validates and adds a rule. Invalid rules are rejected
// synchronously, never silently accepted.
func (h *Healer) Register(rule Rule) error {
	if rule.ID == "" {
		return utils.NewAppError("healer.Register", "rule id is required", nil)
	}
	if rule.Condition == nil {
		return utils.NewAppError("healer.Register", fmt.Sprintf("rule %s has no condition", rule.ID), nil)
	}
	if rule.Action == "" {
		return utils.NewAppError("healer.Register", fmt.Sprintf("rule %s has no action", rule.ID), nil)
	}
	if rule.Cooldown <= 0 {
		return utils.NewAppError("healer.Register", fmt.Sprintf("rule %s has invalid cooldown %v", rule.ID, rule.Cooldown), nil)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.rules[rule.ID]; exists {
		return utils.NewAppError("healer.Register", fmt.Sprintf("rule %s already registered", rule.ID), errors.New("duplicate rule"))
	}
	h.rules[rule.ID] = &ruleState{rule: rule}
	h.order = append(h.order, rule.ID)
	return nil
}

// RuleCount returns the number of registered rules.
func (h *Healer) RuleCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rules)
}

// Evaluate runs one healer tick: every rule whose condition holds and which
// is not cooling down dispatches its action at most once, then cools down.
// Dispatch failures are recorded against the rule's history and never stop
// other rules from evaluating.
func (h *Healer) Evaluate(ctx context.Context, snap models.MetricsSnapshot, score models.AnomalyScore) []DispatchRecord {
	now := h.now()

	h.mu.Lock()
	due := make([]Rule, 0)
	for _, id := range h.order {
		state := h.rules[id]
		if !state.lastFired.IsZero() && now.Sub(state.lastFired) < state.rule.Cooldown {
			continue
		}
		if state.rule.Condition(snap, score) {
			state.lastFired = now
			due = append(due, state.rule)
		}
	}
	h.mu.Unlock()

	fired := make([]DispatchRecord, 0, len(due))
	for _, rule := range due {
		record := DispatchRecord{RuleID: rule.ID, Action: rule.Action, At: now}
		if h.dispatcher != nil {
			info := map[string]string{
				"rule_id":    rule.ID,
				"risk_level": string(score.RiskLevel),
			}
			if err := h.dispatcher.Dispatch(ctx, rule.Action, info); err != nil {
				wrapped := utils.NewAppError("healer.Dispatch", rule.Action, err)
				record.Error = wrapped.Error()
				h.logger.Error("healing action failed",
					slog.String("rule_id", rule.ID),
					slog.String("action", rule.Action),
					slog.Any("error", err))
			} else {
				h.logger.Info("healing action dispatched",
					slog.String("rule_id", rule.ID),
					slog.String("action", rule.Action))
			}
		}
		fired = append(fired, record)
	}

	if len(fired) > 0 {
		h.mu.Lock()
		for _, record := range fired {
			h.history = append(h.history, record)
		}
		if len(h.history) > h.historyCap {
			h.history = append([]DispatchRecord(nil), h.history[len(h.history)-h.historyCap:]...)
		}
		h.mu.Unlock()
	}

	return fired
}

// History returns a copy of the dispatch history in time order.
func (h *Healer) History() []DispatchRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]DispatchRecord(nil), h.history...)
}
