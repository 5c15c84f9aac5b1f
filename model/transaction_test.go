package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestGenerateUUIDWithSuffix(t *testing.T) {
	module := "txn"
	id := GenerateUUIDWithSuffix(module)
	assert.Contains(t, id, module+"_")
}

func TestNewManualTransaction(t *testing.T) {
	txn := NewManualTransaction()
	assert.Contains(t, txn.TransactionID, "txn_")
	assert.Contains(t, txn.SourceID, "manual_")
	assert.Equal(t, SourceManual, txn.Source)
	assert.Equal(t, CompanyUnallocated, txn.Company)
	assert.Equal(t, float64(100), txn.AllocationPercentage)
}

func TestAllocateTo(t *testing.T) {
	txn := NewManualTransaction()
	txn.Amount = 250

	err := txn.AllocateTo("DataLabs", 100)
	assert.NoError(t, err)
	assert.Equal(t, "DataLabs", txn.Company)
	assert.Equal(t, float64(100), txn.AllocationPercentage)

	err = txn.AllocateTo("NoSuchCo", 100)
	assert.Error(t, err)

	err = txn.AllocateTo("DataLabs", 0)
	assert.Error(t, err)

	err = txn.AllocateTo("DataLabs", 101)
	assert.Error(t, err)
}

func TestSplitBetween(t *testing.T) {
	tests := []struct {
		name        string
		amount      float64
		allocations []SplitAllocation
		wantErr     bool
	}{
		{
			name:   "even split sums to 100",
			amount: 100,
			allocations: []SplitAllocation{
				{Company: "ClayGenius", Percentage: 50},
				{Company: "Personal", Percentage: 50},
			},
		},
		{
			name:   "uneven three-way split",
			amount: 999.99,
			allocations: []SplitAllocation{
				{Company: "ClayGenius", Percentage: 33},
				{Company: "RecruitCloud", Percentage: 33},
				{Company: "DataLabs", Percentage: 34},
			},
		},
		{
			name:   "sum below 100 rejected",
			amount: 100,
			allocations: []SplitAllocation{
				{Company: "ClayGenius", Percentage: 60},
				{Company: "Personal", Percentage: 30},
			},
			wantErr: true,
		},
		{
			name:   "sum above 100 rejected",
			amount: 100,
			allocations: []SplitAllocation{
				{Company: "ClayGenius", Percentage: 50},
				{Company: "Personal", Percentage: 60},
			},
			wantErr: true,
		},
		{
			name:        "empty allocations rejected",
			amount:      100,
			allocations: nil,
			wantErr:     true,
		},
		{
			name:   "unknown company rejected",
			amount: 100,
			allocations: []SplitAllocation{
				{Company: "Enron", Percentage: 100},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := NewManualTransaction()
			txn.Amount = tt.amount
			txn.Type = TypeDebit

			err := txn.SplitBetween(tt.allocations)
			if tt.wantErr {
				assert.Error(t, err)
				// the transaction must be left unmodified on failure
				assert.Empty(t, txn.SplitAllocations)
				assert.Equal(t, CompanyUnallocated, txn.Company)
				return
			}

			assert.NoError(t, err)
			assert.Len(t, txn.SplitAllocations, len(tt.allocations))

			// head allocation mirrors the first entry
			assert.Equal(t, tt.allocations[0].Company, txn.Company)
			assert.Equal(t, tt.allocations[0].Percentage, txn.AllocationPercentage)

			// derived amounts sum back to the transaction total within one
			// minor currency unit
			sum := decimal.Zero
			for _, s := range txn.SplitAllocations {
				sum = sum.Add(decimal.NewFromFloat(s.Amount))
			}
			diff := sum.Sub(decimal.NewFromFloat(tt.amount)).Abs()
			assert.True(t, diff.LessThanOrEqual(decimal.NewFromFloat(0.01)),
				"derived amounts drift %s from total", diff)
		})
	}
}

func TestIsExpenseIsIncome(t *testing.T) {
	txn := &Transaction{Type: TypeDebit}
	assert.True(t, txn.IsExpense())
	assert.False(t, txn.IsIncome())

	txn.Type = TypeCredit
	assert.True(t, txn.IsIncome())
	assert.False(t, txn.IsExpense())
}

func TestIsValidCompany(t *testing.T) {
	for _, name := range CompanyNames {
		assert.True(t, IsValidCompany(name))
	}
	assert.False(t, IsValidCompany(CompanyUnallocated))
	assert.False(t, IsValidCompany(""))
}
