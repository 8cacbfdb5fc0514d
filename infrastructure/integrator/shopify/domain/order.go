package domain

import "time"

// Order é um pedido bruto retornado pela API da loja
type Order struct {
	ID         int64      `json:"id"`
	TotalPrice string     `json:"total_price"`
	Currency   string     `json:"currency"`
	CreatedAt  time.Time  `json:"created_at"`
	CanceledAt *time.Time `json:"cancelled_at"`
	LineItems  []LineItem `json:"line_items"`
}

type LineItem struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

// Product é um produto bruto com posição de estoque
type Product struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Variants []Variant `json:"variants"`
}

type Variant struct {
	ID                int64 `json:"id"`
	InventoryQuantity int   `json:"inventory_quantity"`
}

// Customer é um cliente bruto da loja
type Customer struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Shop são os metadados da loja conectada
type Shop struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Domain   string `json:"myshopify_domain"`
	Currency string `json:"currency"`
}
