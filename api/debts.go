/*
Copyright 2025 Tally Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	model2 "github.com/tallyhq/tally/api/model"
	"github.com/tallyhq/tally/internal/apierror"
)

func (a Api) GetDebts(c *gin.Context) {
	debts, err := a.tally.GetDebts(c.Request.Context())
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"debts": debts})
}

func (a Api) GetDebt(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}
	debt, err := a.tally.GetDebt(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	// Derived metrics are undefined without a credit limit or original
	// balance; they are only present when they mean something.
	response := gin.H{"debt": debt}
	if utilization, ok := debt.Utilization(); ok {
		response["utilization_pct"] = utilization
	}
	if progress, ok := debt.PayoffProgress(); ok {
		response["payoff_progress_pct"] = progress
	}
	c.JSON(http.StatusOK, response)
}

// CreateDebt records a manually tracked debt.
func (a Api) CreateDebt(c *gin.Context) {
	var body model2.CreateDebt
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := body.ValidateCreateDebt(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	debt, err := a.tally.CreateManualDebt(c.Request.Context(), body.ToDebt())
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, debt)
}

// RecordDebtPayment applies a payment. Overpayment is allowed; the balance
// may go negative and is reported as-is.
func (a Api) RecordDebtPayment(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	var body model2.RecordDebtPayment
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := body.ValidateRecordDebtPayment(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	debt, err := a.tally.RecordDebtPayment(c.Request.Context(), id, body.Amount, body.Note)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, debt)
}

// DebtOverview serves the aggregate debt report.
func (a Api) DebtOverview(c *gin.Context) {
	overview, err := a.tally.DebtOverview(c.Request.Context())
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, overview)
}

// LinkSBALoan looks a loan up in the federal registry and tracks it.
func (a Api) LinkSBALoan(c *gin.Context) {
	var body model2.LinkSBALoan
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := body.ValidateLinkSBALoan(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	debt, err := a.tally.LinkSBALoan(c.Request.Context(), body.LoanNumber)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, debt)
}

// LinkBorrowerLoans tracks every registry loan under a borrower id.
func (a Api) LinkBorrowerLoans(c *gin.Context) {
	borrowerID, passed := c.Params.Get("borrower_id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "borrower_id is required. pass it in the route /:borrower_id"})
		return
	}

	debts, err := a.tally.LinkBorrowerLoans(c.Request.Context(), borrowerID)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"linked": len(debts), "debts": debts})
}

// ImportLoanPayments pulls a linked loan's payment feed into the ledger. The
// window defaults to the trailing year.
func (a Api) ImportLoanPayments(c *gin.Context) {
	loanNumber, passed := c.Params.Get("loan_number")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "loan_number is required. pass it in the route /:loan_number"})
		return
	}

	end := time.Now()
	start := end.AddDate(-1, 0, 0)
	if v := c.Query("start_date"); v != "" {
		if parsed, err := time.Parse(time.DateOnly, v); err == nil {
			start = parsed
		}
	}

	count, err := a.tally.ImportLoanPayments(c.Request.Context(), loanNumber, start, end)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "imported": count})
}
