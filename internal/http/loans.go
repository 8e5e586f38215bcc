package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/locallibrary/internal/auth"
)

type LoansController struct {
	store LoanStore
}

func NewLoansController(store LoanStore) *LoansController {
	return &LoansController{store: store}
}

// MyBooks lists copies on loan to the caller, soonest due first.
// Routed behind RequireAuth.
// GET /catalog/mybooks?page=N
func (lc *LoansController) MyBooks(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}

	instances, total, err := lc.store.ListLoanedByBorrower(auth.GetUserID(c), MyLoansPageSize, pageOffset(page, MyLoansPageSize))
	if err != nil {
		respondInternalError(c, err, "list my loans")
		return
	}

	respondPage(c, newInstanceViews(instances), page, MyLoansPageSize, total)
}

// Borrowed lists every copy on loan, soonest due first.
// Routed behind RequirePermission(catalog.can_mark_returned).
// GET /catalog/borrowed?page=N
func (lc *LoansController) Borrowed(c *gin.Context) {
	page, ok := parsePage(c)
	if !ok {
		return
	}

	instances, total, err := lc.store.ListLoaned(BorrowedPageSize, pageOffset(page, BorrowedPageSize))
	if err != nil {
		respondInternalError(c, err, "list borrowed")
		return
	}

	respondPage(c, newInstanceViews(instances), page, BorrowedPageSize, total)
}
