package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/desertthunder/plbop/internal/shared"
)

func TestInterrupted(t *testing.T) {
	tc := []struct {
		name string
		err  error
		code int
		ok   bool
	}{
		{name: "cancelled context", err: context.Canceled, code: exitInterrupted, ok: true},
		{name: "wrapped cancellation", err: fmt.Errorf("fill failed: %w", context.Canceled), code: exitInterrupted, ok: true},
		{name: "other failure", err: shared.ErrAPIRequest},
		{name: "deadline is not an interrupt", err: context.DeadlineExceeded},
		{name: "plain error", err: errors.New("boom")},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			code, ok := interrupted(shared.NewLogger(&buf), tt.err)
			if code != tt.code || ok != tt.ok {
				t.Errorf("expected (%d, %v), got (%d, %v)", tt.code, tt.ok, code, ok)
			}
			if ok != strings.Contains(buf.String(), "run cancelled") {
				t.Errorf("unexpected log output %q", buf.String())
			}
		})
	}
}
