package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/opcpublisher/plcharness/internal/docker"
)

var plcRef = ImageReference{Name: testImage, Tag: "latest"}

func TestReapNoMatchesIsNoop(t *testing.T) {
	eng := &fakeEngine{containers: []docker.Container{
		{ID: "web", Image: "nginx:latest", State: "running"},
	}}

	n, err := Reap(context.Background(), eng, plcRef, ReapOptions{})
	if err != nil {
		t.Fatalf("expected no-op success, got %v", err)
	}
	if n != 0 {
		t.Fatalf("expected nothing reaped, got %d", n)
	}
	if len(eng.callsWithPrefix("stop")) != 0 || len(eng.callsWithPrefix("remove")) != 0 {
		t.Fatalf("expected no stop/remove calls, got %v", eng.calls)
	}
	if len(eng.containers) != 1 {
		t.Fatalf("unrelated container must survive")
	}
}

func TestReapExactStringMatch(t *testing.T) {
	eng := &fakeEngine{containers: []docker.Container{
		{ID: "a", Image: testImage, State: "running"},
		{ID: "b", Image: testImage + ":latest", State: "running"},
		{ID: "c", Image: testImage + ":2.9.0", State: "running"},
		{ID: "d", Image: "mcr.microsoft.com/iotedge/opc-plc-sidecar", State: "running"},
		{ID: "e", Image: testImage, State: "created"},
		{ID: "f", Image: testImage + "@sha256:0123", State: "exited"},
	}}

	n, err := Reap(context.Background(), eng, plcRef, ReapOptions{})
	if err != nil {
		t.Fatalf("Reap failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 reaped, got %d", n)
	}
	left := map[string]bool{}
	for _, c := range eng.containers {
		left[c.ID] = true
	}
	for _, id := range []string{"b", "c", "d", "f"} {
		if !left[id] {
			t.Fatalf("container %s must be untouched, remaining=%v", id, left)
		}
	}
	if left["a"] || left["e"] {
		t.Fatalf("exact matches must be removed, remaining=%v", left)
	}
}

func TestReapStopsBeforeRemove(t *testing.T) {
	eng := &fakeEngine{containers: []docker.Container{{ID: "x", Image: testImage, State: "running"}}}
	if _, err := Reap(context.Background(), eng, plcRef, ReapOptions{}); err != nil {
		t.Fatal(err)
	}
	want := []string{"list 10", "stop x", "remove x"}
	if strings.Join(eng.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("expected calls %v, got %v", want, eng.calls)
	}
}

func TestReapWindowIsBounded(t *testing.T) {
	eng := &fakeEngine{}
	for i := 0; i < 12; i++ {
		eng.containers = append(eng.containers, docker.Container{ID: fmt.Sprintf("new-%d", i), Image: "other"})
	}
	eng.containers = append(eng.containers, docker.Container{ID: "ancient", Image: testImage})

	n, err := Reap(context.Background(), eng, plcRef, ReapOptions{Limit: 10})
	if err != nil || n != 0 {
		t.Fatalf("expected containers outside the window to be missed, n=%d err=%v", n, err)
	}
	if eng.withImage(testImage) != 1 {
		t.Fatalf("ancient container must still exist")
	}

	n, err = Reap(context.Background(), eng, plcRef, ReapOptions{Limit: 20})
	if err != nil || n != 1 {
		t.Fatalf("expected wider window to find it, n=%d err=%v", n, err)
	}
}

func TestReapAbortsOnFirstFailure(t *testing.T) {
	eng := &fakeEngine{
		containers: []docker.Container{
			{ID: "a", Image: testImage, State: "running"},
			{ID: "b", Image: testImage, State: "running"},
		},
		stopErr: map[string]error{"a": fmt.Errorf("engine busy")},
	}

	_, err := Reap(context.Background(), eng, plcRef, ReapOptions{})
	if !errors.Is(err, ErrStop) {
		t.Fatalf("expected ErrStop, got %v", err)
	}
	var lerr *Error
	if !errors.As(err, &lerr) || lerr.ContainerID != "a" {
		t.Fatalf("expected error naming container a, got %v", err)
	}
	if len(eng.callsWithPrefix("stop b")) != 0 {
		t.Fatalf("abort mode must not continue to the next candidate, calls=%v", eng.calls)
	}
	if eng.withImage(testImage) != 2 {
		t.Fatalf("expected partial cleanup to leave both containers")
	}
}

func TestReapRemoveFailure(t *testing.T) {
	eng := &fakeEngine{
		containers: []docker.Container{{ID: "a", Image: testImage, State: "running"}},
		removeErr:  map[string]error{"a": fmt.Errorf("removal in progress")},
	}
	_, err := Reap(context.Background(), eng, plcRef, ReapOptions{})
	if !errors.Is(err, ErrRemove) {
		t.Fatalf("expected ErrRemove, got %v", err)
	}
	if !strings.Contains(err.Error(), "removal in progress") || !strings.Contains(err.Error(), "container a") {
		t.Fatalf("expected cause and id in message, got %q", err.Error())
	}
}

func TestReapBestEffortContinues(t *testing.T) {
	eng := &fakeEngine{
		containers: []docker.Container{
			{ID: "a", Image: testImage, State: "running"},
			{ID: "b", Image: testImage, State: "running"},
			{ID: "c", Image: testImage, State: "running"},
		},
		stopErr:   map[string]error{"a": fmt.Errorf("engine busy")},
		removeErr: map[string]error{"c": fmt.Errorf("in use")},
	}

	n, err := Reap(context.Background(), eng, plcRef, ReapOptions{BestEffort: true})
	if n != 1 {
		t.Fatalf("expected b to be reaped, got %d", n)
	}
	if !errors.Is(err, ErrStop) || !errors.Is(err, ErrRemove) {
		t.Fatalf("expected both failures joined, got %v", err)
	}
	if eng.withImage(testImage) != 2 {
		t.Fatalf("expected a and c to remain")
	}
}

func TestReapListFailure(t *testing.T) {
	eng := &fakeEngine{listErr: fmt.Errorf("permission denied")}
	_, err := Reap(context.Background(), eng, plcRef, ReapOptions{})
	if !errors.Is(err, ErrList) {
		t.Fatalf("expected ErrList, got %v", err)
	}
}
