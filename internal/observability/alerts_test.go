package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"gopkg.in/yaml.v3"

	"github.com/lekka-app/lekka/jobs"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertSpec struct {
	Groups []alertGroup `yaml:"groups"`
}

func loadAlertSpec(t *testing.T) alertSpec {
	t.Helper()
	path := filepath.Join("..", "..", "deploy", "prometheus", "alerts", "lekka.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read alert file: %v", err)
	}

	var spec alertSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		t.Fatalf("failed to unmarshal alert file: %v", err)
	}
	return spec
}

func TestLekkaAlertRules(t *testing.T) {
	spec := loadAlertSpec(t)

	if len(spec.Groups) == 0 {
		t.Fatal("expected at least one alert group")
	}

	var lekkaGroup *alertGroup
	for i := range spec.Groups {
		if spec.Groups[i].Name == "lekka" {
			lekkaGroup = &spec.Groups[i]
			break
		}
	}
	if lekkaGroup == nil {
		t.Fatal("lekka alert group missing")
	}

	expected := map[string]struct {
		severity string
		runbook  string
	}{
		"HighErrorRate":       {severity: "critical", runbook: "docs/runbook.md#high-error-rate"},
		"HighLatency":         {severity: "warning", runbook: "docs/runbook.md#high-latency"},
		"LowStockScanFailing": {severity: "warning", runbook: "docs/runbook.md#low-stock-scan-failing"},
	}

	if len(lekkaGroup.Rules) != len(expected) {
		t.Fatalf("expected %d rules, got %d", len(expected), len(lekkaGroup.Rules))
	}

	for _, rule := range lekkaGroup.Rules {
		want, ok := expected[rule.Alert]
		if !ok {
			t.Fatalf("unexpected rule %q", rule.Alert)
		}
		if rule.Labels["severity"] != want.severity {
			t.Fatalf("rule %s severity mismatch: %s", rule.Alert, rule.Labels["severity"])
		}
		if rule.Annotations["runbook"] != want.runbook {
			t.Fatalf("rule %s runbook mismatch: %s", rule.Alert, rule.Annotations["runbook"])
		}
		if rule.Annotations["summary"] == "" || rule.Annotations["description"] == "" {
			t.Fatalf("rule %s must include summary and description annotations", rule.Alert)
		}
		if rule.Expr == "" {
			t.Fatalf("rule %s must define an expression", rule.Alert)
		}
		if rule.For == "" {
			t.Fatalf("rule %s must define a hold duration", rule.Alert)
		}
	}
}

var (
	selectorPattern = regexp.MustCompile(`(lekka_[a-z_]+)(\{[^}]*\})?`)
	matcherPattern  = regexp.MustCompile(`(\w+)\s*(=~|=)\s*"([^"]*)"`)
)

// Every series an alert selects must exist once the code paths behind it have
// run, so a renamed metric or label value breaks here instead of in production.
func TestAlertSelectorsMatchEmittedSeries(t *testing.T) {
	metrics := NewMetrics()

	failing := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
	_ = metrics.Jobs().Track(jobs.TaskLowStockScan).End(errors.New("smtp down"))
	metrics.Jobs().AddAlerts("failed", 1)

	families, err := metrics.registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	lowStockSelectors := 0
	for _, group := range loadAlertSpec(t).Groups {
		for _, rule := range group.Rules {
			for _, sel := range selectorPattern.FindAllStringSubmatch(rule.Expr, -1) {
				name := sel[1]
				mf, ok := byName[name]
				if !ok {
					for _, suffix := range []string{"_bucket", "_sum", "_count"} {
						if mf, ok = byName[strings.TrimSuffix(name, suffix)]; ok {
							break
						}
					}
				}
				if !ok {
					t.Fatalf("rule %s selects unknown metric %s", rule.Alert, name)
				}
				if rule.Alert == "LowStockScanFailing" {
					lowStockSelectors++
				}
				for _, m := range matcherPattern.FindAllStringSubmatch(sel[2], -1) {
					if !seriesMatch(mf, m[1], m[2], m[3]) {
						t.Fatalf("rule %s: no %s series with %s%s%q", rule.Alert, name, m[1], m[2], m[3])
					}
				}
			}
		}
	}
	if lowStockSelectors != 2 {
		t.Fatalf("LowStockScanFailing should watch job failures and failed alert emails, got %d selectors", lowStockSelectors)
	}
}

func seriesMatch(mf *dto.MetricFamily, label, op, value string) bool {
	re := regexp.MustCompile("^(?:" + value + ")$")
	for _, metric := range mf.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() != label {
				continue
			}
			if op == "=" && pair.GetValue() == value {
				return true
			}
			if op == "=~" && re.MatchString(pair.GetValue()) {
				return true
			}
		}
	}
	return false
}
