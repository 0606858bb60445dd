package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	a, b := &stubJob{name: "a"}, &stubJob{name: "b"}
	registry := NewRegistry(a, nil)
	if err := registry.Register(b); err != nil {
		t.Fatalf("register: %v", err)
	}

	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0] != a || jobs[1] != b {
		t.Fatalf("unexpected jobs %v", jobs)
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatal("caller mutated the registry")
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "sweep"})
	if err := registry.Register(&stubJob{name: "sweep"}); err == nil {
		t.Fatal("expected duplicate name to be rejected")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected NewRegistry to panic on duplicates")
		}
	}()
	NewRegistry(&stubJob{name: "x"}, &stubJob{name: "x"})
}
