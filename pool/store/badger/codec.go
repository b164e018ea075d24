package badger

import (
	"fmt"
	"time"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rwax/earnpool/pool/store"
)

// Amounts are persisted as decimal strings because math.Int is not
// gob-encodable. Records mirror the store types field for field.

type poolStateRec struct {
	TotalSupply      string
	UserTotalAssets  string
	PeriodStart      time.Time
	PeriodRewards    string
	LastDay          int64
	CurrentBatchID   uint64
	ConfirmedBatchID uint64
	WithdrawQuota    string
	WithdrawFeeRate  string
	FeeReceiver      common.Address
	Paused           bool
}

type adapterStateRec struct {
	LastVaultTotalAssets string
	AccruedFee           string
}

type requestRec struct {
	BatchID      uint64
	WithdrawTime time.Time
	Amount       string
}

func parseInt(s string) (math.Int, error) {
	v, ok := math.NewIntFromString(s)
	if !ok {
		return math.Int{}, fmt.Errorf("corrupt amount in store: %q", s)
	}
	return v, nil
}

func encodePoolState(s store.PoolState) poolStateRec {
	return poolStateRec{
		TotalSupply:      s.TotalSupply.String(),
		UserTotalAssets:  s.UserTotalAssets.String(),
		PeriodStart:      s.PeriodStart,
		PeriodRewards:    s.PeriodRewards.String(),
		LastDay:          s.LastDay,
		CurrentBatchID:   s.CurrentBatchID,
		ConfirmedBatchID: s.ConfirmedBatchID,
		WithdrawQuota:    s.WithdrawQuota.String(),
		WithdrawFeeRate:  s.WithdrawFeeRate.String(),
		FeeReceiver:      s.FeeReceiver,
		Paused:           s.Paused,
	}
}

func decodePoolState(r poolStateRec) (store.PoolState, error) {
	s := store.PoolState{
		PeriodStart:      r.PeriodStart,
		LastDay:          r.LastDay,
		CurrentBatchID:   r.CurrentBatchID,
		ConfirmedBatchID: r.ConfirmedBatchID,
		FeeReceiver:      r.FeeReceiver,
		Paused:           r.Paused,
	}
	var err error
	if s.TotalSupply, err = parseInt(r.TotalSupply); err != nil {
		return s, err
	}
	if s.UserTotalAssets, err = parseInt(r.UserTotalAssets); err != nil {
		return s, err
	}
	if s.PeriodRewards, err = parseInt(r.PeriodRewards); err != nil {
		return s, err
	}
	if s.WithdrawQuota, err = parseInt(r.WithdrawQuota); err != nil {
		return s, err
	}
	if s.WithdrawFeeRate, err = parseInt(r.WithdrawFeeRate); err != nil {
		return s, err
	}
	return s, nil
}

func encodeAdapterState(s store.AdapterState) adapterStateRec {
	return adapterStateRec{
		LastVaultTotalAssets: s.LastVaultTotalAssets.String(),
		AccruedFee:           s.AccruedFee.String(),
	}
}

func decodeAdapterState(r adapterStateRec) (store.AdapterState, error) {
	var s store.AdapterState
	var err error
	if s.LastVaultTotalAssets, err = parseInt(r.LastVaultTotalAssets); err != nil {
		return s, err
	}
	if s.AccruedFee, err = parseInt(r.AccruedFee); err != nil {
		return s, err
	}
	return s, nil
}

func encodeRequests(queue []store.WithdrawalRequest) []requestRec {
	recs := make([]requestRec, 0, len(queue))
	for _, r := range queue {
		recs = append(recs, requestRec{
			BatchID:      r.BatchID,
			WithdrawTime: r.WithdrawTime,
			Amount:       r.Amount.String(),
		})
	}
	return recs
}

func decodeRequestRec(r requestRec) (store.WithdrawalRequest, error) {
	amount, err := parseInt(r.Amount)
	if err != nil {
		return store.WithdrawalRequest{}, err
	}
	return store.WithdrawalRequest{
		BatchID:      r.BatchID,
		WithdrawTime: r.WithdrawTime,
		Amount:       amount,
	}, nil
}

func decodeRequests(recs []requestRec) ([]store.WithdrawalRequest, error) {
	queue := make([]store.WithdrawalRequest, 0, len(recs))
	for _, r := range recs {
		amount, err := parseInt(r.Amount)
		if err != nil {
			return nil, err
		}
		queue = append(queue, store.WithdrawalRequest{
			BatchID:      r.BatchID,
			WithdrawTime: r.WithdrawTime,
			Amount:       amount,
		})
	}
	return queue, nil
}
