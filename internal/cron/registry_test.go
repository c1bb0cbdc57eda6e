package cron

import (
	"context"
	"testing"
)

type namedJob struct {
	name string
	runs int
}

func (j *namedJob) Name() string { return j.name }

func (j *namedJob) Run(ctx context.Context) error {
	j.runs++
	return nil
}

func TestRegistryPreservesOrderAndSkipsNil(t *testing.T) {
	first := &namedJob{name: "first"}
	second := &namedJob{name: "second"}

	registry := NewRegistry(first, nil, second)
	registry.Register(nil)
	registry.Register(&namedJob{name: "third"})

	jobs := registry.Jobs()
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	if jobs[0].Name() != "first" || jobs[1].Name() != "second" || jobs[2].Name() != "third" {
		t.Fatalf("unexpected order: %s, %s, %s", jobs[0].Name(), jobs[1].Name(), jobs[2].Name())
	}
}
