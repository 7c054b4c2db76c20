package healer

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-sentinel/internal/models"
)

// RulePackFile is the YAML root structure for a healing rule pack.
type RulePackFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// RuleSpec is the declarative form of a healing rule.
type RuleSpec struct {
	ID          string        `yaml:"id"`
	Description string        `yaml:"description"`
	When        ConditionSpec `yaml:"when"`
	Action      string        `yaml:"action"`
	Cooldown    time.Duration `yaml:"cooldown"`
}

// ConditionSpec describes a threshold condition over one signal.
type ConditionSpec struct {
	Signal   string  `yaml:"signal"`
	Operator string  `yaml:"operator"`
	Value    float64 `yaml:"value"`
	Risk     string  `yaml:"risk"`
}

// LoadRules parses a YAML rule pack into executable rules. Invalid specs
// are rejected at load time. An empty path yields no rules; a missing file
// is treated the same way so the engine can boot without a pack.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var file RulePackFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rule pack: %w", err)
	}

	rules := make([]Rule, 0, len(file.Rules))
	for _, spec := range file.Rules {
		rule, err := compileRule(spec)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func compileRule(spec RuleSpec) (Rule, error) {
	condition, err := compileCondition(spec.When)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: %w", spec.ID, err)
	}
	return Rule{
		ID:          spec.ID,
		Description: spec.Description,
		Condition:   condition,
		Action:      spec.Action,
		Cooldown:    spec.Cooldown,
	}, nil
}

func compileCondition(spec ConditionSpec) (Condition, error) {
	if spec.Risk != "" {
		risk := models.RiskLevel(strings.ToLower(spec.Risk))
		switch risk {
		case models.RiskNormal, models.RiskWarning, models.RiskAlert, models.RiskCritical:
		default:
			return nil, fmt.Errorf("unknown risk level %q", spec.Risk)
		}
		return func(_ models.MetricsSnapshot, score models.AnomalyScore) bool {
			return score.RiskLevel == risk
		}, nil
	}

	extract, err := signalExtractor(spec.Signal)
	if err != nil {
		return nil, err
	}
	compare, err := comparator(spec.Operator)
	if err != nil {
		return nil, err
	}
	value := spec.Value
	return func(snap models.MetricsSnapshot, score models.AnomalyScore) bool {
		return compare(extract(snap, score), value)
	}, nil
}

func signalExtractor(signal string) (func(models.MetricsSnapshot, models.AnomalyScore) float64, error) {
	switch signal {
	case "error_rate_percent":
		return func(s models.MetricsSnapshot, _ models.AnomalyScore) float64 { return s.ErrorRatePercent }, nil
	case "avg_response_time_ms":
		return func(s models.MetricsSnapshot, _ models.AnomalyScore) float64 { return s.AvgResponseTimeMS }, nil
	case "memory_usage_mb":
		return func(s models.MetricsSnapshot, _ models.AnomalyScore) float64 { return s.MemoryUsageMB }, nil
	case "operations_per_second":
		return func(s models.MetricsSnapshot, _ models.AnomalyScore) float64 { return s.OperationsPerSecond }, nil
	case "overall_score":
		return func(_ models.MetricsSnapshot, a models.AnomalyScore) float64 { return a.OverallScore }, nil
	case "":
		return nil, errors.New("condition signal is required")
	default:
		return nil, fmt.Errorf("unknown signal %q", signal)
	}
}

func comparator(op string) (func(a, b float64) bool, error) {
	switch op {
	case ">", "gt":
		return func(a, b float64) bool { return a > b }, nil
	case ">=", "gte":
		return func(a, b float64) bool { return a >= b }, nil
	case "<", "lt":
		return func(a, b float64) bool { return a < b }, nil
	case "<=", "lte":
		return func(a, b float64) bool { return a <= b }, nil
	case "":
		return nil, errors.New("condition operator is required")
	default:
		return nil, fmt.Errorf("unknown operator %q", op)
	}
}
