package redis

import (
	"busfare/internal/lock"
	"busfare/internal/payrail"
	"busfare/internal/service"
)

// Ensure concrete types implement interfaces.
var (
	_ lock.Locker          = (*LockStore)(nil)
	_ payrail.Rail         = (*WalletStore)(nil)
	_ service.WalletFunder = (*WalletStore)(nil)
	_ service.BalanceCache = (*CacheStore)(nil)
)
