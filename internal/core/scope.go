package core

// ScopeIDs returns the aggregation scope for a wallet: its own id plus the
// ids of non-deleted wallets directly under it. Sub-wallets resolve to a
// scope of just themselves; the hierarchy is one level and only expands
// starting from a top-level wallet.
func ScopeIDs(w Wallet, owned []Wallet) []int64 {
	ids := []int64{w.ID}
	if w.IsSubWallet() {
		return ids
	}
	for _, o := range owned {
		if o.DeletedAt != nil {
			continue
		}
		if o.SubWalletOf != nil && *o.SubWalletOf == w.ID {
			ids = append(ids, o.ID)
		}
	}
	return ids
}
