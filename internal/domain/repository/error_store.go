package repository

import (
	"latency-monitor/internal/domain/entity"
)

// ErrorStore is the process-wide table of user-visible error conditions.
// Dispatch is total: every action is valid for every state.
type ErrorStore interface {
	// Dispatch applies a SET_ERROR or CLEAR_ERROR action atomically.
	Dispatch(action entity.Action)

	// State returns a copy of the current error table.
	State() entity.GlobalErrorState

	// Subscribe registers listener for state changes. The returned function removes it.
	Subscribe(listener func(entity.GlobalErrorState)) (unsubscribe func())
}
