package task

import (
	"fmt"
	"strings"
	"time"
)

type Filter int

const (
	All Filter = iota
	Ongoing
	Completed
	Missed
)

var filterNames = map[Filter]string{
	All:       "all",
	Ongoing:   "ongoing",
	Completed: "completed",
	Missed:    "missed",
}

func (f Filter) String() string {
	if name, ok := filterNames[f]; ok {
		return name
	}
	return fmt.Sprintf("filter(%d)", int(f))
}

func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return All, nil
	}
	for f, name := range filterNames {
		if name == s {
			return f, nil
		}
	}
	return All, fmt.Errorf("unknown filter %q", s)
}

// Next cycles All -> Ongoing -> Completed -> Missed -> All.
func (f Filter) Next() Filter {
	return (f + 1) % Filter(len(filterNames))
}

func (f Filter) Prev() Filter {
	n := Filter(len(filterNames))
	return (f + n - 1) % n
}

type DueBound int

const (
	DueAny DueBound = iota
	// DuePast matches a set due date strictly before now.
	DuePast
	// DueNotPast matches an unset due date or one at or after now.
	DueNotPast
)

type Order int

const (
	Ascending Order = iota
	Descending
)

// Rule describes one filter as data. Classify evaluates Rules in order and the
// store renders the same fields into SQL, so the two cannot drift apart.
type Rule struct {
	Filter    Filter
	Completed bool
	Due       DueBound
	Order     Order
}

// Rules is ordered: the first matching rule wins. Completion dominates lateness.
var Rules = []Rule{
	{Filter: Completed, Completed: true, Due: DueAny, Order: Descending},
	{Filter: Missed, Completed: false, Due: DuePast, Order: Descending},
	{Filter: Ongoing, Completed: false, Due: DueNotPast, Order: Ascending},
}

func (r Rule) Match(t Task, now time.Time) bool {
	if t.Completed != r.Completed {
		return false
	}
	switch r.Due {
	case DuePast:
		return t.Due.Before(now)
	case DueNotPast:
		return !t.Due.Before(now)
	default:
		return true
	}
}

// RuleFor returns the rule for f. All has no rule.
func RuleFor(f Filter) (Rule, bool) {
	for _, r := range Rules {
		if r.Filter == f {
			return r, true
		}
	}
	return Rule{}, false
}

func Classify(t Task, now time.Time) Filter {
	for _, r := range Rules {
		if r.Match(t, now) {
			return r.Filter
		}
	}
	return Ongoing
}

// Select keeps the tasks of ts that f admits at now, preserving order.
func Select(ts []Task, f Filter, now time.Time) []Task {
	var out []Task
	for _, t := range ts {
		if f == All || Classify(t, now) == f {
			out = append(out, t)
		}
	}
	return out
}
