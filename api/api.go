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

	"github.com/gin-gonic/gin"

	"github.com/tallyhq/tally"
	"github.com/tallyhq/tally/api/middleware"
	"github.com/tallyhq/tally/config"
)

type Api struct {
	tally  *tally.Tally
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.GET("/providers", a.ListProviders)
	router.POST("/providers/:source/link-token", a.CreatePlaidLinkToken)
	router.POST("/providers/:source/link", a.LinkProvider)
	router.GET("/providers/:source/connect", a.QuickBooksConnect)
	router.GET("/providers/:source/callback", a.QuickBooksCallback)
	router.GET("/providers/:source/companies", a.QuickBooksCompanies)

	router.GET("/cards/issuers", a.ListCardIssuers)
	router.POST("/cards/connect", a.ConnectCard)
	router.POST("/cards/:issuer/import", a.ImportCardStatement)

	router.GET("/accounts", a.GetAccounts)
	router.DELETE("/accounts/:id", a.UnlinkAccount)

	router.POST("/sync", a.Synchronize)
	router.POST("/sync/:source", a.SyncProvider)
	router.POST("/jobs/sync", a.QueueSynchronize)

	router.GET("/transactions", a.ListTransactions)
	router.GET("/transactions/:id", a.GetTransaction)
	router.POST("/transactions", a.RecordExpense)
	router.DELETE("/transactions/:id", a.DeleteTransaction)

	router.POST("/transactions/:id/allocate", a.AllocateTransaction)
	router.POST("/transactions/:id/split", a.SplitTransaction)
	router.POST("/allocations/bulk", a.BulkAllocate)
	router.GET("/allocations/unallocated", a.UnallocatedTransactions)

	router.GET("/debts", a.GetDebts)
	router.POST("/debts", a.CreateDebt)
	router.GET("/debts/:id", a.GetDebt)
	router.POST("/debts/:id/payment", a.RecordDebtPayment)
	router.POST("/sba/loans", a.LinkSBALoan)
	router.POST("/sba/loans/:loan_number/payments/import", a.ImportLoanPayments)
	router.POST("/sba/borrowers/:borrower_id/loans", a.LinkBorrowerLoans)

	router.GET("/dashboard", a.GetDashboard)
	router.GET("/reports/daily-summary", a.GetDailySummary)
	router.GET("/reports/trends", a.GetSpendingTrends)
	router.GET("/reports/transactions", a.GetTransactionStats)
	router.GET("/reports/budget", a.GetBudgetReport)
	router.GET("/reports/debts", a.DebtOverview)
	router.GET("/reports/profit-loss", a.GetProfitAndLoss)

	router.GET("/companies", a.GetCompanies)
	router.GET("/companies/:name/summary", a.GetCompanySummary)
	router.GET("/companies/:name/report", a.GetCompanyReport)

	return a.router
}

func NewAPI(t *tally.Tally) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return &Api{tally: t, router: r}
}
