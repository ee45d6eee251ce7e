// Package policy holds the authorization rules: which rows a caller may see, which
// fields a caller may write, and the object-level permission checks. Everything here
// is a pure function of the caller and the target; nothing reads the request.
package policy

import (
	"net/http"
	"sort"
)

type Role string

const (
	RoleStaff       Role = "staff"
	RoleSelfService Role = "self-service"
)

// Principal is the authenticated caller, already bound to its customer record.
type Principal struct {
	UserID     uint
	IsStaff    bool
	CustomerID uint
}

func (p Principal) Role() Role {
	if p.IsStaff {
		return RoleStaff
	}
	return RoleSelfService
}

type Resource string

const (
	ResourceCustomer  Resource = "customer"
	ResourceProduct   Resource = "product"
	ResourceOrder     Resource = "order"
	ResourceOrderItem Resource = "order_item"
)

// Field names as they appear on the wire.
const (
	FieldName        = "name"
	FieldPhoneNumber = "phone_number"
	FieldEmail       = "email"
	FieldCode        = "code"
	FieldDescription = "description"
	FieldPrice       = "price"
	FieldCustomer    = "customer"
	FieldStatus      = "status"
	FieldItems       = "items"
	FieldProduct     = "product"
	FieldQuantity    = "quantity"
)

type FieldSet map[string]struct{}

func NewFieldSet(fields ...string) FieldSet {
	s := make(FieldSet, len(fields))
	for _, f := range fields {
		s[f] = struct{}{}
	}
	return s
}

func (s FieldSet) Has(field string) bool {
	_, ok := s[field]
	return ok
}

// Sorted returns the fields in a stable order for responses.
func (s FieldSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// WritableFields returns the input fields role may set on resource. Derived fields
// (totals, subtotals, unit prices, product names, the customer's user binding, ids,
// timestamps) are never writable.
func WritableFields(role Role, resource Resource) FieldSet {
	staff := role == RoleStaff
	switch resource {
	case ResourceCustomer:
		if staff {
			return NewFieldSet(FieldName, FieldPhoneNumber, FieldEmail)
		}
		return NewFieldSet(FieldName, FieldPhoneNumber)
	case ResourceProduct:
		if staff {
			return NewFieldSet(FieldName, FieldCode, FieldDescription, FieldPrice)
		}
		return NewFieldSet()
	case ResourceOrder:
		if staff {
			return NewFieldSet(FieldCustomer, FieldStatus, FieldItems)
		}
		return NewFieldSet(FieldItems)
	case ResourceOrderItem:
		return NewFieldSet(FieldProduct, FieldQuantity)
	}
	return NewFieldSet()
}

// IsStaff grants object access to staff only.
func IsStaff(p Principal) bool {
	return p.IsStaff
}

// IsAdminOrOwner grants access to staff, or to the user bound to the order's customer.
func IsAdminOrOwner(p Principal, ownerUserID uint) bool {
	if p.IsStaff {
		return true
	}
	return p.UserID != 0 && p.UserID == ownerUserID
}

// IsAdminOrReadOnly allows safe methods for any caller, including anonymous ones,
// and mutating methods for staff only. A nil principal is anonymous.
func IsAdminOrReadOnly(p *Principal, method string) bool {
	if IsSafeMethod(method) {
		return true
	}
	return p != nil && p.IsStaff
}

func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
