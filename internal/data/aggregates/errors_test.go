package aggregates

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/integration-engine/internal/domain/aggregates"
	engine "github.com/yungbote/integration-engine/internal/modules/integration"
	"github.com/yungbote/integration-engine/internal/platform/redisx"
)

func TestMapError_Validation(t *testing.T) {
	err := MapError("op", ValidationError("bad input"))
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_Conflict(t *testing.T) {
	err := MapError("op", ConflictError("stale"))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_NotFound(t *testing.T) {
	err := MapError("op", gorm.ErrRecordNotFound)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_PassthroughAggregateError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeRetryable, "op", "retry", errors.New("boom"))
	out := MapError("other", in)
	if out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
}

func TestMapError_EngineSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want domainagg.ErrorCode
	}{
		{fmt.Errorf("%w: unknown theme", engine.ErrValidation), domainagg.CodeValidation},
		{fmt.Errorf("%w: gate", engine.ErrNotFound), domainagg.CodeNotFound},
		{fmt.Errorf("%w: user", redisx.ErrLockBusy), domainagg.CodeRetryable},
		{errors.New("UNIQUE constraint failed: integration_architecture.user_id"), domainagg.CodeConflict},
		{errors.New("database is locked"), domainagg.CodeRetryable},
		{errors.New("boom"), domainagg.CodeInternal},
	}
	for _, tc := range cases {
		if got := domainagg.CodeOf(MapError("op", tc.err)); got != tc.want {
			t.Fatalf("MapError(%v)=%s want %s", tc.err, got, tc.want)
		}
	}
}
