package repository

import "gorm.io/gorm"

// Scope narrows a query, typically to the rows a caller may see.
type Scope = func(*gorm.DB) *gorm.DB
