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
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	model2 "github.com/tallyhq/tally/api/model"
	"github.com/tallyhq/tally/database"
	"github.com/tallyhq/tally/internal/apierror"
)

// ListTransactions returns a filtered, paginated transaction listing. All
// filters arrive as query parameters; unknown parameters are ignored.
func (a Api) ListTransactions(c *gin.Context) {
	filter := transactionFilterFromQuery(c)
	limit, offset := pagination(c)

	transactions, total, err := a.tally.ListTransactions(c.Request.Context(), filter, limit, offset)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"total":        total,
		"limit":        limit,
		"offset":       offset,
	})
}

func (a Api) GetTransaction(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}
	transaction, err := a.tally.GetTransaction(c.Request.Context(), id)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, transaction)
}

// RecordExpense stores a hand-entered expense or income row.
func (a Api) RecordExpense(c *gin.Context) {
	var newExpense model2.RecordExpense
	if err := c.ShouldBindJSON(&newExpense); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := newExpense.ValidateRecordExpense(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	transaction, err := a.tally.RecordManualTransaction(c.Request.Context(), newExpense.ToTransaction())
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, transaction)
}

func (a Api) DeleteTransaction(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}
	if err := a.tally.DeleteManualTransaction(c.Request.Context(), id); err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func transactionFilterFromQuery(c *gin.Context) database.TransactionFilter {
	filter := database.TransactionFilter{
		Category: c.Query("category"),
		Source:   c.Query("source"),
		Type:     c.Query("type"),
		Company:  c.Query("company"),
		Search:   c.Query("search"),
	}
	if v := c.Query("start_date"); v != "" {
		if parsed, err := time.Parse(time.DateOnly, v); err == nil {
			filter.StartDate = &parsed
		}
	}
	if v := c.Query("end_date"); v != "" {
		if parsed, err := time.Parse(time.DateOnly, v); err == nil {
			filter.EndDate = &parsed
		}
	}
	if v := c.Query("min_amount"); v != "" {
		if amount, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinAmount = &amount
		}
	}
	if v := c.Query("max_amount"); v != "" {
		if amount, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MaxAmount = &amount
		}
	}
	return filter
}

func pagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
