package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Product is a bottled item sold in the shop. Prices and stock are held
// per volume.
type Product struct {
    ID          uint64    // products.id
    Name        string    // products.name
    Description string    // products.description
    IsActive    bool      // products.is_active
    CreatedAt   time.Time // products.created_at
    UpdatedAt   time.Time // products.updated_at
    Volumes     []ProductVolume
}

// ProductVolume is a priced and stocked unit of a product (e.g. 70 cl).
// Stock is decremented once per paid order item, inside the payment
// confirmation transaction, and never goes below zero.
type ProductVolume struct {
    ID        uint64          // product_volumes.id
    ProductID uint64          // product_volumes.product_id
    Size      decimal.Decimal // product_volumes.size
    Unit      string          // product_volumes.unit
    Price     decimal.Decimal // product_volumes.price
    Stock     int             // product_volumes.stock
    UpdatedAt time.Time       // product_volumes.updated_at
}

// Label renders the volume as "70 cl".
func (v ProductVolume) Label() string {
    return v.Size.String() + " " + v.Unit
}
