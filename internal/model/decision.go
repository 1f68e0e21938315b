package model

// LockDecision is the outcome of evaluating a (user, objective, field)
// triple against the active rule set.
type LockDecision struct {
	Locked bool   `json:"is_locked"`
	LockID *int64 `json:"lock_id,omitempty"`
	Reason string `json:"lock_reason,omitempty"`
}

// Editability composes the coarse capability grant with the lock decision.
// Editable requires both: a grant that allows the field and no lock on it.
type Editability struct {
	Editable bool         `json:"editable"`
	Granted  bool         `json:"granted"`
	Lock     LockDecision `json:"lock"`
}
