package model

// AutoMigrateに渡すモデル一覧
func All() []interface{} {
	return []interface{}{
		&User{},
		&RefreshToken{},
		&Address{},
		&Taxon{},
		&Product{},
		&InventoryAdjustment{},
		&Cart{},
		&CartItem{},
		&WishlistItem{},
		&OrderCounter{},
		&Order{},
		&OrderItem{},
		&AuditLog{},
	}
}
