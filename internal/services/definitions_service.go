package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"semantiq/internal/models"
)

// SeedDefinitions are operator-curated default annotations applied when an
// edit session opens: global synonym groups and table metrics that every
// schema should start with. Entries never overwrite what a schema already
// carries; the model's case-insensitive no-op rule applies.
type SeedDefinitions struct {
	Synonyms []SeedSynonym `yaml:"synonyms,omitempty"`
	Metrics  []SeedMetric  `yaml:"metrics,omitempty"`
}

// SeedSynonym targets a table by name; an empty table applies nowhere and
// is rejected by validation.
type SeedSynonym struct {
	Table        string   `yaml:"table"`
	Synonym      string   `yaml:"synonym"`
	SampleValues []string `yaml:"sample_values,omitempty"`
}

// SeedMetric targets a table by name, or the schema scope when Table is "".
type SeedMetric struct {
	Table      string `yaml:"table,omitempty"`
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}

// LoadSeedDefinitions loads and validates a YAML definitions file.
func LoadSeedDefinitions(path string) (*SeedDefinitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported definitions format: %s (expected .yaml or .yml)", ext)
	}

	var defs SeedDefinitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse definitions YAML: %w", err)
	}
	if err := ValidateSeedDefinitions(&defs); err != nil {
		return nil, fmt.Errorf("definitions validation failed: %w", err)
	}
	return &defs, nil
}

// ValidateSeedDefinitions checks every entry and reports the first problem
// with its index, so operators can fix the file directly.
func ValidateSeedDefinitions(defs *SeedDefinitions) error {
	for i, syn := range defs.Synonyms {
		if strings.TrimSpace(syn.Table) == "" {
			return fmt.Errorf("synonym %d: table is required", i)
		}
		if strings.TrimSpace(syn.Synonym) == "" {
			return fmt.Errorf("synonym %d: synonym is required", i)
		}
	}
	for i, metric := range defs.Metrics {
		if strings.TrimSpace(metric.Name) == "" {
			return fmt.Errorf("metric %d: name is required", i)
		}
		if strings.TrimSpace(metric.Expression) == "" {
			return fmt.Errorf("metric %d: expression is required", i)
		}
	}
	return nil
}

// Apply seeds a freshly ingested model. Entries for tables the schema does
// not have are skipped; entries whose names already exist are no-ops.
func (d *SeedDefinitions) Apply(model *models.SchemaModel) {
	if d == nil {
		return
	}
	for _, syn := range d.Synonyms {
		if _, ok := model.Table(syn.Table); !ok {
			continue
		}
		_, _ = model.AddTableSynonym(syn.Table, models.SynonymGroup{
			Synonym:      syn.Synonym,
			SampleValues: syn.SampleValues,
		})
	}
	for _, metric := range d.Metrics {
		if metric.Table != "" {
			if _, ok := model.Table(metric.Table); !ok {
				continue
			}
			if hasMetricItem(model, metric.Table, metric.Name) {
				continue
			}
		} else if hasSchemaMetric(model, metric.Name) {
			continue
		}
		_ = model.AddMetric(metric.Table, models.Metric{Name: metric.Name, Expression: metric.Expression})
	}
}

func hasMetricItem(model *models.SchemaModel, tableID, name string) bool {
	t, ok := model.Table(tableID)
	if !ok {
		return false
	}
	for _, item := range t.MetricItems {
		if strings.EqualFold(item.Name, name) {
			return true
		}
	}
	for existing := range t.Metrics {
		if strings.EqualFold(existing, name) {
			return true
		}
	}
	return false
}

func hasSchemaMetric(model *models.SchemaModel, name string) bool {
	for _, metric := range model.Schema.Metrics {
		if strings.EqualFold(metric.Name, name) {
			return true
		}
	}
	return false
}
