package usecase_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/collectdesk/pkg/usecase"
)

func TestErrors_ErrorsAreDistinct(t *testing.T) {
	sentinels := []error{
		usecase.ErrCaseNotFound,
		usecase.ErrConversationNotFound,
		usecase.ErrUnauthenticated,
		usecase.ErrAccessDenied,
		usecase.ErrNotAssignedAgent,
		usecase.ErrInvalidActionType,
		usecase.ErrEmptyDescription,
		usecase.ErrInvalidAmount,
		usecase.ErrInvalidStatus,
		usecase.ErrInvalidExportFormat,
		usecase.ErrInvalidReference,
		usecase.ErrEmptyMessage,
		usecase.ErrPartialFailure,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			gt.Bool(t, errors.Is(a, b)).False()
		}
	}
}
