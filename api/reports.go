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
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tallyhq/tally/internal/apierror"
)

func (a Api) GetDashboard(c *gin.Context) {
	dashboard, err := a.tally.GetDashboard(c.Request.Context())
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// GetDailySummary aggregates one day of debit activity. Date defaults to
// today.
func (a Api) GetDailySummary(c *gin.Context) {
	date := time.Now()
	if v := c.Query("date"); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be formatted as YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	summary, err := a.tally.GenerateDailySummary(c.Request.Context(), date)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (a Api) GetSpendingTrends(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil {
		days = 30
	}
	trend, err := a.tally.SpendingTrends(c.Request.Context(), days)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trend": trend})
}

func (a Api) GetBudgetReport(c *gin.Context) {
	report, err := a.tally.MonthlyBudgetReport(c.Request.Context())
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"budget": report})
}

// GetTransactionStats serves the window-wide cash flow aggregate. The window
// defaults to the trailing thirty days.
func (a Api) GetTransactionStats(c *gin.Context) {
	end := time.Now()
	start := end.AddDate(0, 0, -30)
	if v := c.Query("start_date"); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be formatted as YYYY-MM-DD"})
			return
		}
		start = parsed
	}
	if v := c.Query("end_date"); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be formatted as YYYY-MM-DD"})
			return
		}
		end = parsed
	}

	stats, err := a.tally.TransactionStatsSummary(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetProfitAndLoss proxies the accounting vendor's P&L report for one linked
// company account. The window defaults to the trailing three months.
func (a Api) GetProfitAndLoss(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id is required"})
		return
	}

	end := time.Now()
	start := end.AddDate(0, -3, 0)
	if v := c.Query("start_date"); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be formatted as YYYY-MM-DD"})
			return
		}
		start = parsed
	}
	if v := c.Query("end_date"); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be formatted as YYYY-MM-DD"})
			return
		}
		end = parsed
	}

	report, err := a.tally.ProfitAndLoss(c.Request.Context(), accountID, start, end)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (a Api) GetCompanies(c *gin.Context) {
	companies, err := a.tally.GetCompanies(c.Request.Context())
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"companies": companies})
}

func (a Api) GetCompanySummary(c *gin.Context) {
	name, passed := c.Params.Get("name")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required. pass it in the route /:name"})
		return
	}
	summary, err := a.tally.GetCompanySummary(c.Request.Context(), name)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetCompanyReport serves a company summary, as CSV when format=csv.
func (a Api) GetCompanyReport(c *gin.Context) {
	name, passed := c.Params.Get("name")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required. pass it in the route /:name"})
		return
	}
	summary, err := a.tally.GetCompanySummary(c.Request.Context(), name)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	if c.DefaultQuery("format", "json") != "csv" {
		c.JSON(http.StatusOK, summary)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-report.csv", name))

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"category", "total", "count", "avg_amount"})
	for _, category := range summary.Categories {
		_ = w.Write([]string{
			category.Category,
			strconv.FormatFloat(category.Total, 'f', 2, 64),
			strconv.Itoa(category.Count),
			strconv.FormatFloat(category.AvgAmount, 'f', 2, 64),
		})
	}
	w.Flush()
}
