package models

// All lists every persisted model in dependency order for AutoMigrate and DropTable.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Customer{},
		&Product{},
		&Order{},
		&OrderItem{},
	}
}
