package para

import (
	"fmt"
	"time"

	"github.com/goliatone/go-paracharts/rules"
)

// Evaluator returns the configured rule evaluator, building an expr evaluator
// wired with the configured cache and functions when none was set.
func (s *Store) Evaluator() (rules.Evaluator, error) {
	if s.cfg.evaluator != nil {
		return s.cfg.evaluator, nil
	}
	s.evalOnce.Do(func() {
		s.defaultEvaluator = s.buildDefaultEvaluator()
	})
	if s.defaultEvaluator == nil {
		return nil, ErrNoEvaluator
	}
	return s.defaultEvaluator, nil
}

func (s *Store) buildDefaultEvaluator() rules.Evaluator {
	var opts []rules.ExprOption
	if s.cfg.programCache != nil {
		opts = append(opts, rules.ExprWithProgramCache(s.cfg.programCache))
	}
	if s.cfg.functions != nil {
		opts = append(opts, rules.ExprWithFunctionRegistry(s.cfg.functions))
	}
	return rules.NewExpr(opts...)
}

// Evaluate runs expr against the current snapshot.
func (s *Store) Evaluate(expr string) (any, error) {
	return s.EvaluateWith(nil, expr)
}

// EvaluateWith runs expr against the current snapshot with vars bound on top
// of the snapshot's top-level groups.
func (s *Store) EvaluateWith(vars map[string]any, expr string) (any, error) {
	if expr == "" {
		return nil, fmt.Errorf("para: expression must not be empty")
	}
	evaluator, err := s.Evaluator()
	if err != nil {
		return nil, err
	}
	env := rules.Env{Snapshot: s.Settings(), Vars: vars}
	start := time.Now()
	value, err := evaluator.Evaluate(env, expr)
	s.logger.Debug("rule evaluated",
		"engine", rules.EngineName(evaluator),
		"expr", expr,
		"duration", time.Since(start),
		"error", err,
	)
	if err != nil {
		return nil, err
	}
	return value, nil
}
