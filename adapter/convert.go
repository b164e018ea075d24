package adapter

import "cosmossdk.io/math"

// ratePrecision is the denominator for 18-decimal fraction parameters.
var ratePrecision = math.NewInt(1e18)

// convertWithLoss applies a one-sided conversion loss:
// out = in - in*lossRate/1e18. The loss is charged only on the
// converted-to side, never in both directions of a round trip.
func convertWithLoss(amount, lossRate math.Int) math.Int {
	return amount.Sub(amount.Mul(lossRate).Quo(ratePrecision))
}

// AssetToVaultAsset quotes a pool-asset amount in vault-asset terms, net of
// the configured conversion loss.
func (a *Adapter) AssetToVaultAsset(amount math.Int) math.Int {
	return convertWithLoss(amount, a.toVaultAssetLossRate)
}

// VaultAssetToAsset quotes a vault-asset amount in pool-asset terms, net of
// the configured conversion loss.
func (a *Adapter) VaultAssetToAsset(amount math.Int) math.Int {
	return convertWithLoss(amount, a.toAssetLossRate)
}
