package services

import (
	"errors"
	"fmt"

	"github.com/PR-botsAI/VolleyCoachAI-sub000/lock"
	"github.com/PR-botsAI/VolleyCoachAI-sub000/repositories"
)

// Ошибки уровня сервисов. Хендлеры сопоставляют их с HTTP статусами.
var (
	ErrNotFound           = errors.New("requested resource not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrTournamentNotFound = errors.New("tournament not found")

	ErrValidationFailed = errors.New("validation failed")

	// Операция вызвана вне допустимого состояния жизненного цикла.
	ErrInvalidState      = errors.New("operation not allowed in the current state")
	ErrInvalidTeam       = errors.New("team does not play in this match")
	ErrInsufficientTeams = errors.New("at least 2 teams are required")
	ErrNoCompletedGames  = errors.New("no completed pool matches")
	ErrSetLimitExceeded  = errors.New("match already has the maximum number of sets")

	// Конкурентное изменение той же записи; повтор запроса допустим.
	ErrConcurrentUpdate = errors.New("record was modified concurrently, retry the request")
)

// handleRepositoryError переводит ошибки репозиториев в ошибки сервисов.
func handleRepositoryError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrMatchNotFound):
		return fmt.Errorf("%s: %w", op, ErrMatchNotFound)
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return fmt.Errorf("%s: %w", op, ErrTournamentNotFound)
	case errors.Is(err, repositories.ErrSetNotFound), errors.Is(err, repositories.ErrStandingNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, repositories.ErrStatusConflict):
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidState, err)
	case errors.Is(err, repositories.ErrVersionConflict), errors.Is(err, lock.ErrLockTimeout):
		return fmt.Errorf("%s: %w: %v", op, ErrConcurrentUpdate, err)
	case errors.Is(err, repositories.ErrReferenceInvalid), errors.Is(err, repositories.ErrCheckViolation):
		return fmt.Errorf("%s: %w: %v", op, ErrValidationFailed, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
