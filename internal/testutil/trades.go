package testutil

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/chainwatch/internal/model"
)

// Trades builds n live trades one second apart. Every fifth trade is a best match.
func Trades(n int) model.Batch {
	batch := make(model.Batch, n)
	for i := range batch {
		batch[i] = model.Transaction{
			Time:        1718020800000 + int64(i)*1000,
			Price:       decimal.NewFromFloat(64000).Add(decimal.NewFromInt(int64(i))),
			Qty:         decimal.New(int64(i+1), -3),
			IsBestMatch: i%5 == 0,
		}
	}
	return batch
}

// Transfer builds a narrated transaction between two accounts.
func Transfer(from, to string, amount float64, anomalous bool, history ...float64) model.Transaction {
	tx := model.Transaction{
		FromAccount: from,
		ToAccount:   to,
		Amount:      decimal.NewFromFloat(amount),
		Price:       decimal.NewFromFloat(50000),
		IsAnomaly:   model.Flag(anomalous),
		Reason:      "Within normal range",
	}
	for _, h := range history {
		tx.History = append(tx.History, decimal.NewFromFloat(h))
	}
	if anomalous {
		tx.ModelDecision = "Anomaly"
		tx.Reason = fmt.Sprintf("Sudden spike: now %v", amount)
	} else {
		tx.ModelDecision = "Normal"
	}
	return tx
}
