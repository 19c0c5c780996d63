package conditions

import (
	"io"
	"log"
	"strconv"
	"strings"

	"idlecraft.ai/internal/sim/catalogs"
)

type Levels interface {
	Level(skillID string) int
}

// Translator renders locale ids. A nil Translator renders ids verbatim.
type Translator interface {
	T(id string) string
}

// Evaluator checks content conditions against the current player state. It
// never mutates anything.
type Evaluator struct {
	skills Levels
	tr     Translator
	log    *log.Logger
}

func New(skills Levels, tr Translator, logger *log.Logger) *Evaluator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Evaluator{skills: skills, tr: tr, log: logger}
}

// Check evaluates one condition. Unknown kinds fail closed.
func (e *Evaluator) Check(c catalogs.ConditionDef) bool {
	switch c.Kind {
	case catalogs.ConditionSkillLevel:
		lvl := e.skills.Level(c.SkillID)
		if lvl == 0 {
			e.log.Printf("conditions: unknown skill %q", c.SkillID)
			return false
		}
		return lvl >= c.Level
	default:
		e.log.Printf("conditions: unknown kind %q", c.Kind)
		return false
	}
}

// CheckAll evaluates in declaration order and stops at the first failure.
func (e *Evaluator) CheckAll(cs []catalogs.ConditionDef) bool {
	_, unmet := e.FirstUnmet(cs)
	return !unmet
}

func (e *Evaluator) FirstUnmet(cs []catalogs.ConditionDef) (catalogs.ConditionDef, bool) {
	for _, c := range cs {
		if !e.Check(c) {
			return c, true
		}
	}
	return catalogs.ConditionDef{}, false
}

// DescribeUnmet renders the unmet conditions, one per line, or "" when all hold.
func (e *Evaluator) DescribeUnmet(cs []catalogs.ConditionDef) string {
	var lines []string
	for _, c := range cs {
		if e.Check(c) {
			continue
		}
		lines = append(lines, e.describe(c))
	}
	return strings.Join(lines, "\n")
}

func (e *Evaluator) describe(c catalogs.ConditionDef) string {
	switch c.Kind {
	case catalogs.ConditionSkillLevel:
		return e.t("condition_skillLevel") + strconv.Itoa(c.Level) + " (" + e.t(c.SkillID) + ")"
	default:
		return c.Kind
	}
}

func (e *Evaluator) t(id string) string {
	if e.tr == nil {
		return id
	}
	if s := e.tr.T(id); s != "" {
		return s
	}
	return id
}
