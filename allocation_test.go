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

package tally

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/tallyhq/tally/database/mocks"
	"github.com/tallyhq/tally/internal/apierror"
	"github.com/tallyhq/tally/model"
)

func TestAllocateTransaction(t *testing.T) {
	ds := new(mocks.MockDataSource)
	txn := model.NewManualTransaction()
	txn.TransactionID = "txn_1"
	ds.On("GetTransaction", mock.Anything, "txn_1").Return(txn, nil)
	ds.On("UpdateAllocation", mock.Anything, txn).Return(nil)

	tally := newTestTally(ds)
	got, err := tally.AllocateTransaction(context.Background(), "txn_1", "DataLabs", 0)

	assert.NoError(t, err)
	assert.Equal(t, "DataLabs", got.Company)
	assert.Equal(t, 100.0, got.AllocationPercentage)
	assert.Nil(t, got.SplitAllocations)
	ds.AssertExpectations(t)
}

func TestAllocateTransaction_ExpenseBumpsBudgetSpend(t *testing.T) {
	ds := new(mocks.MockDataSource)
	txn := model.NewManualTransaction()
	txn.TransactionID = "txn_1"
	txn.Type = model.TypeDebit
	txn.Category = "Software"
	txn.Amount = 49.99
	ds.On("GetTransaction", mock.Anything, "txn_1").Return(txn, nil)
	ds.On("UpdateAllocation", mock.Anything, txn).Return(nil)
	ds.On("UpdateBudgetSpend", mock.Anything, "DataLabs", "Software", 49.99).Return(nil)

	tally := newTestTally(ds)
	_, err := tally.AllocateTransaction(context.Background(), "txn_1", "DataLabs", 100)

	assert.NoError(t, err)
	ds.AssertExpectations(t)
}

func TestAllocateTransaction_UnknownCompany(t *testing.T) {
	ds := new(mocks.MockDataSource)
	txn := model.NewManualTransaction()
	txn.TransactionID = "txn_1"
	ds.On("GetTransaction", mock.Anything, "txn_1").Return(txn, nil)

	tally := newTestTally(ds)
	_, err := tally.AllocateTransaction(context.Background(), "txn_1", "NoSuchCo", 100)

	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrValidation, apiErr.Code)
	ds.AssertNotCalled(t, "UpdateAllocation", mock.Anything, mock.Anything)
}

func TestSplitTransaction(t *testing.T) {
	ds := new(mocks.MockDataSource)
	txn := model.NewManualTransaction()
	txn.TransactionID = "txn_1"
	ds.On("GetTransaction", mock.Anything, "txn_1").Return(txn, nil)
	ds.On("UpdateAllocation", mock.Anything, txn).Return(nil)

	tally := newTestTally(ds)
	got, err := tally.SplitTransaction(context.Background(), "txn_1", []model.SplitAllocation{
		{Company: "ClayGenius", Percentage: 60},
		{Company: "RecruitCloud", Percentage: 40},
	})

	assert.NoError(t, err)
	assert.Len(t, got.SplitAllocations, 2)
	ds.AssertExpectations(t)
}

func TestSplitTransaction_RejectsBadSum(t *testing.T) {
	ds := new(mocks.MockDataSource)
	txn := model.NewManualTransaction()
	txn.TransactionID = "txn_1"
	ds.On("GetTransaction", mock.Anything, "txn_1").Return(txn, nil)

	tally := newTestTally(ds)
	_, err := tally.SplitTransaction(context.Background(), "txn_1", []model.SplitAllocation{
		{Company: "ClayGenius", Percentage: 60},
		{Company: "RecruitCloud", Percentage: 30},
	})

	assert.Error(t, err)
	ds.AssertNotCalled(t, "UpdateAllocation", mock.Anything, mock.Anything)
}

func TestBulkAllocate_ValidatesInput(t *testing.T) {
	ds := new(mocks.MockDataSource)
	tally := newTestTally(ds)

	_, err := tally.BulkAllocate(context.Background(), nil, "DataLabs")
	assert.Error(t, err)

	_, err = tally.BulkAllocate(context.Background(), []string{"txn_1"}, "NoSuchCo")
	assert.Error(t, err)

	ds.On("BulkAllocate", mock.Anything, []string{"txn_1", "txn_2"}, "DataLabs").Return(int64(2), nil)
	n, err := tally.BulkAllocate(context.Background(), []string{"txn_1", "txn_2"}, "DataLabs")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	ds.AssertExpectations(t)
}
