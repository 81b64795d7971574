package entity

// Customer is a payment gateway customer found by live lookup.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// CancellationResult lists what an account cancellation deleted and what failed.
type CancellationResult struct {
	Email      string   `json:"-"`
	Matched    int      `json:"-"`
	DeletedIDs []string `json:"deleted_ids"`
	FailedIDs  []string `json:"failed_ids"`
}

// Complete reports whether every matched customer was deleted.
func (r *CancellationResult) Complete() bool {
	return len(r.FailedIDs) == 0
}
