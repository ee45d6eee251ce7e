package policy

import "gorm.io/gorm"

// CustomerScope limits customers to the caller's own record unless staff.
func CustomerScope(p Principal) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.IsStaff {
			return db
		}
		return db.Where("customers.user_id = ?", p.UserID)
	}
}

// OrderScope limits orders to those of the caller's customer unless staff.
func OrderScope(p Principal) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.IsStaff {
			return db
		}
		return db.Where("orders.customer_id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).Table("customers").Select("id").Where("user_id = ?", p.UserID))
	}
}

// OrderItemScope limits items to those on orders of the caller's customer unless staff.
func OrderItemScope(p Principal) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.IsStaff {
			return db
		}
		return db.Where("order_items.order_id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).Table("orders").Select("orders.id").
				Joins("JOIN customers ON customers.id = orders.customer_id").
				Where("customers.user_id = ?", p.UserID))
	}
}
