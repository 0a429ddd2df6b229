package db

import (
	"errors"
	"testing"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadlock", errors.New("ERROR: deadlock detected (SQLSTATE 40P01)"), true},
		{"serialization", errors.New("ERROR: could not serialize access due to concurrent update"), true},
		{"connection reset", errors.New("read tcp 10.0.0.1:5432: connection reset by peer"), true},
		{"timeout", errors.New("dial tcp: i/o timeout"), true},
		{"unique violation", errors.New(`duplicate key value violates unique constraint "idx_movements_txn"`), false},
		{"constraint", errors.New("ERROR: null value in column violates not-null constraint"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := errors.New(`duplicate key value violates unique constraint "idx_movements_txn_detail_active"`)
	if !IsUniqueViolation(err, "") {
		t.Fatal("expected generic unique violation match")
	}
	if !IsUniqueViolation(err, "idx_movements_txn_detail_active") {
		t.Fatal("expected named constraint match")
	}
	if IsUniqueViolation(err, "other_constraint") {
		t.Fatal("did not expect match for different constraint")
	}
	if IsUniqueViolation(errors.New("UNIQUE constraint failed: movements.id"), "") == false {
		t.Fatal("expected sqlite unique violation match")
	}
}
