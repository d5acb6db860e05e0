package model

import (
	"encoding/json"
	"time"
)

// Group is a named collection of tracked items (a category on the client).
type Group struct {
	ID           string    `json:"id"`
	LocalID      string    `json:"localId,omitempty"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	DisplayOrder int       `json:"displayOrder"`
	IsDefault    bool      `json:"isDefault"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Item is a tracked inventory item.
type Item struct {
	ID              string    `json:"id"`
	LocalID         string    `json:"localId,omitempty"`
	GroupID         *string   `json:"groupId,omitempty"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	Quantity        int       `json:"quantity"`
	Unit            string    `json:"unit"`
	MinimumStock    int       `json:"minimumStock"`
	ExpiryDate      *string   `json:"expiryDate,omitempty"`
	Brand           *string   `json:"brand,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	SupplierName    *string   `json:"supplierName,omitempty"`
	SupplierContact *string   `json:"supplierContact,omitempty"`
	PurchaseLink    *string   `json:"purchaseLink,omitempty"`
	ImageURI        *string   `json:"imageUri,omitempty"`
	IsActive        bool      `json:"isActive"`
	IsCritical      bool      `json:"isCritical"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// DefaultUnit is the unit assigned to items created without one.
const DefaultUnit = "pieces"

// Order is a restock order exported from the client.
type Order struct {
	ID         string      `json:"id"`
	LocalID    string      `json:"localId,omitempty"`
	OrderID    string      `json:"orderId"`
	Status     OrderStatus `json:"status"`
	TotalItems int         `json:"totalItems"`
	TotalUnits int         `json:"totalUnits"`
	Notes      *string     `json:"notes,omitempty"`
	ExportedAt time.Time   `json:"exportedAt"`
	OrderedAt  *time.Time  `json:"orderedAt,omitempty"`
	ReceivedAt *time.Time  `json:"receivedAt,omitempty"`
	AppliedAt  *time.Time  `json:"appliedAt,omitempty"`
	DeclinedAt *time.Time  `json:"declinedAt,omitempty"`
	Items      []OrderLine `json:"items"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// OrderLine is one item line of an order. ItemID references the tracked
// item whose quantity is incremented when the order is applied to stock.
type OrderLine struct {
	ItemID       string  `json:"itemId"`
	Name         string  `json:"name"`
	Brand        *string `json:"brand,omitempty"`
	Unit         string  `json:"unit"`
	Quantity     int     `json:"quantity"`
	CurrentStock int     `json:"currentStock"`
	MinimumStock int     `json:"minimumStock"`
	ImageURI     *string `json:"imageUri,omitempty"`
	SupplierName *string `json:"supplierName,omitempty"`
	PurchaseLink *string `json:"purchaseLink,omitempty"`
}

// Opt is an optional payload field that may also be null. Set records
// whether the key was present at all; a present null clears the stored value.
type Opt[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON implements json.Unmarshaler. It is called for null too.
func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// ApplyTo overwrites *dst when the field was present.
func (o Opt[T]) ApplyTo(dst **T) {
	if o.Set {
		*dst = o.Value
	}
}

// GroupPatch is the decoded payload of a group create or update. Nil or
// unset fields were absent from the payload and are left untouched.
type GroupPatch struct {
	Name         *string     `json:"name"`
	Description  Opt[string] `json:"description"`
	DisplayOrder *int        `json:"displayOrder"`
	IsDefault    *bool       `json:"isDefault"`
}

// ItemPatch is the decoded payload of an item create or update.
//
// The owning group may be given by server id (GroupID) or by the client id
// of a group pushed earlier (GroupLocalID). A null groupId detaches the item.
type ItemPatch struct {
	GroupID         Opt[string] `json:"groupId"`
	GroupLocalID    *string     `json:"groupLocalId"`
	Name            *string     `json:"name"`
	Description     Opt[string] `json:"description"`
	Quantity        *int        `json:"quantity"`
	Unit            *string     `json:"unit"`
	MinimumStock    *int        `json:"minimumStock"`
	ExpiryDate      Opt[string] `json:"expiryDate"`
	Brand           Opt[string] `json:"brand"`
	Notes           Opt[string] `json:"notes"`
	SupplierName    Opt[string] `json:"supplierName"`
	SupplierContact Opt[string] `json:"supplierContact"`
	PurchaseLink    Opt[string] `json:"purchaseLink"`
	ImageURI        Opt[string] `json:"imageUri"`
	IsActive        *bool       `json:"isActive"`
	IsCritical      *bool       `json:"isCritical"`
}

// OrderPatch is the decoded payload of an order create or update. When Items
// is non-nil it replaces every existing line of the order.
//
// Lifecycle timestamps are not accepted from the payload; the server stamps
// them from the operation's occurredAt when the status changes.
type OrderPatch struct {
	OrderID    *string      `json:"orderId"`
	Status     *OrderStatus `json:"status"`
	TotalItems *int         `json:"totalItems"`
	TotalUnits *int         `json:"totalUnits"`
	Notes      Opt[string]  `json:"notes"`
	ExportedAt *time.Time   `json:"exportedAt"`
	Items      *[]OrderLine `json:"items"`
}

// ReplaceSet is the decoded payload of a replace_set operation.
type ReplaceSet struct {
	LocalIDs   []string `json:"localIds"`
	AllowEmpty bool     `json:"allowEmpty"`
}
