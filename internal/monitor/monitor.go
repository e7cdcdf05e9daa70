package monitor

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mvakit/mvakit/internal/config"
	"github.com/mvakit/mvakit/internal/pipeline"
)

const maxHistoryLen = 200

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Stage      string     `json:"stage,omitempty"` // empty = overall
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"` // "firing" | "resolved"
}

// observation is one evaluated event's outcome inside the sliding window.
type observation struct {
	at        time.Time
	abstained map[string]bool // stage name -> abstained
}

// Engine tracks evaluation outcomes over a sliding window and evaluates
// threshold rules against the derived rates, delivering webhook
// notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []config.RuleConfig
	webhooks []config.WebhookConfig
	window   time.Duration

	mu       sync.Mutex
	obs      []observation
	active   map[string]*Alert    // key: rule name
	lastFire map[string]time.Time // last fire time per rule (for cooldown)
	history  []*Alert             // recently resolved alerts
	client   *http.Client
}

// New creates an Engine from the monitor configuration. An Engine with
// empty rules is valid — Observe only maintains the window.
func New(cfg config.MonitorConfig) *Engine {
	return &Engine{
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		window:   cfg.Window,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Observe records one evaluated event and re-evaluates all rules. Alerts
// that fire are stored and webhook delivery is triggered asynchronously;
// alerts whose condition has cleared are resolved.
func (e *Engine) Observe(res *pipeline.Result, now time.Time) {
	abstained := make(map[string]bool, len(res.Abstained))
	for _, name := range res.Abstained {
		abstained[name] = true
	}

	e.mu.Lock()
	e.obs = append(e.obs, observation{at: now, abstained: abstained})
	e.prune(now)
	e.mu.Unlock()

	for _, rule := range e.rules {
		e.evaluateRule(rule, now)
	}
}

// prune drops observations that have left the window. Callers hold e.mu.
func (e *Engine) prune(now time.Time) {
	cutoff := now.Add(-e.window)
	keep := 0
	for keep < len(e.obs) && !e.obs[keep].at.After(cutoff) {
		keep++
	}
	e.obs = e.obs[keep:]
}

// windowStats are the rates a rule condition is tested against.
type windowStats struct {
	events     int
	abstained  int
	eventsPM   float64
	abstainPct float64
}

// stats derives the window rates for one rule scope. Callers hold e.mu.
func (e *Engine) stats(stage string, now time.Time) windowStats {
	var s windowStats
	for _, o := range e.obs {
		s.events++
		if stage == "" {
			if len(o.abstained) > 0 {
				s.abstained++
			}
		} else if o.abstained[stage] {
			s.abstained++
		}
	}
	if s.events > 0 {
		s.abstainPct = float64(s.abstained) / float64(s.events) * 100
	}
	if min := e.window.Minutes(); min > 0 {
		s.eventsPM = float64(s.events) / min
	}
	return s
}

func (e *Engine) evaluateRule(rule config.RuleConfig, now time.Time) {
	e.mu.Lock()

	st := e.stats(rule.Stage, now)
	fires, value := evalCondition(rule.Condition, st)

	if fires {
		cooldown := rule.Cooldown
		if cooldown <= 0 {
			cooldown = config.DefaultRuleCooldown
		}
		if now.Sub(e.lastFire[rule.Name]) <= cooldown {
			e.mu.Unlock()
			return
		}
		sev := rule.Severity
		if sev == "" {
			sev = "warning"
		}
		scope := rule.Stage
		if scope == "" {
			scope = "pipeline"
		}
		a := &Alert{
			ID:       fmt.Sprintf("%s:%d", rule.Name, now.UnixNano()),
			RuleName: rule.Name,
			Stage:    rule.Stage,
			Severity: sev,
			Value:    value,
			Message: fmt.Sprintf("[%s] %s fired on %s — %s = %.2f",
				sev, rule.Name, scope, rule.Condition, value),
			FiredAt: now,
			State:   "firing",
		}
		e.active[rule.Name] = a
		e.lastFire[rule.Name] = now
		alertCopy := *a
		e.mu.Unlock()

		slog.Warn("monitor: rule fired",
			"rule", rule.Name,
			"stage", rule.Stage,
			"value", value,
			"severity", sev,
		)
		go e.deliver(&alertCopy)
		return
	}

	if a, ok := e.active[rule.Name]; ok && a.State == "firing" {
		resolved := now
		a.State = "resolved"
		a.ResolvedAt = &resolved
		delete(e.active, rule.Name)

		e.history = append(e.history, a)
		if len(e.history) > maxHistoryLen {
			e.history = e.history[len(e.history)-maxHistoryLen:]
		}
		alertCopy := *a
		e.mu.Unlock()

		slog.Info("monitor: rule resolved", "rule", rule.Name, "stage", rule.Stage)
		go e.deliver(&alertCopy)
		return
	}
	e.mu.Unlock()
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted by the engine's insertion order.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := time.Now().Add(-time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}
