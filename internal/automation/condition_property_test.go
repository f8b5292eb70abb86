package automation

import (
	"testing"

	"pgregory.net/rapid"
)

func genValue() *rapid.Generator[Value] {
	return rapid.Custom(func(t *rapid.T) Value {
		if rapid.Bool().Draw(t, "null") {
			return Value{}
		}
		return StringValue(rapid.OneOf(
			rapid.SampledFrom([]string{"", "0", "1.5", "-3", "Done", "done"}),
			rapid.String(),
		).Draw(t, "s"))
	})
}

func genSnapshot() *rapid.Generator[TaskSnapshot] {
	return rapid.Custom(func(t *rapid.T) TaskSnapshot {
		fields := rapid.MapOf(rapid.SampledFrom([]string{"Points", "Priority", "Team"}), genValue()).Draw(t, "fields")
		return TaskSnapshot{
			Title:    rapid.String().Draw(t, "title"),
			Status:   rapid.SampledFrom([]string{"todo", "in_progress", "done"}).Draw(t, "status"),
			Assignee: genValue().Draw(t, "assignee"),
			Section:  genValue().Draw(t, "section"),
			DueDate:  genValue().Draw(t, "due"),
			Fields:   fields,
		}
	})
}

func genCondition() *rapid.Generator[Condition] {
	return rapid.Custom(func(t *rapid.T) Condition {
		return Condition{
			Field:    rapid.SampledFrom([]string{"title", "status", "assignee", "section", "dueDate", "Points", "Priority", "Team", "Nope"}).Draw(t, "field"),
			Operator: rapid.SampledFrom(append([]Operator{"bogus"}, Operators...)).Draw(t, "op"),
			Value:    rapid.SampledFrom([]string{"", "0", "1.5", "Done", "todo", "x"}).Draw(t, "value"),
		}
	})
}

func TestPropertyEmptyGroupAlwaysMatches(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		snap := genSnapshot().Draw(t, "snap")
		logic := rapid.SampledFrom([]string{"", "AND", "OR", "xor"}).Draw(t, "logic")
		if !Evaluate(ConditionGroup{Logic: logic}, snap) {
			t.Fatal("empty condition list must be vacuously true")
		}
	})
}

func TestPropertyEmptinessOperatorsComplementary(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := genValue().Draw(t, "v")
		empty := EvaluateCondition(Condition{Operator: OpIsEmpty}, v)
		notEmpty := EvaluateCondition(Condition{Operator: OpIsNotEmpty}, v)
		if empty == notEmpty {
			t.Fatalf("is_empty=%v is_not_empty=%v for %+v", empty, notEmpty, v)
		}
	})
}

func TestPropertyOrWithOneTrueConditionMatches(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		snap := genSnapshot().Draw(t, "snap")
		conds := rapid.SliceOf(genCondition()).Draw(t, "conds")
		always := Condition{Field: "status", Operator: OpEquals, Value: snap.Status}
		at := rapid.IntRange(0, len(conds)).Draw(t, "at")
		conds = append(conds[:at], append([]Condition{always}, conds[at:]...)...)
		if !Evaluate(ConditionGroup{Logic: LogicOr, Conditions: conds}, snap) {
			t.Fatal("OR group with a true condition evaluated false")
		}
	})
}

func TestPropertyAndIsConjunction(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		snap := genSnapshot().Draw(t, "snap")
		conds := rapid.SliceOfN(genCondition(), 1, 6).Draw(t, "conds")
		want := true
		for _, c := range conds {
			want = want && EvaluateCondition(c, snap.Resolve(c.Field))
		}
		if got := Evaluate(ConditionGroup{Logic: LogicAnd, Conditions: conds}, snap); got != want {
			t.Fatalf("AND = %v, want %v", got, want)
		}
		never := Condition{Field: "status", Operator: OpNotEquals, Value: snap.Status}
		if Evaluate(ConditionGroup{Logic: LogicAnd, Conditions: append(conds, never)}, snap) {
			t.Fatal("a single false condition must force AND to false")
		}
	})
}
